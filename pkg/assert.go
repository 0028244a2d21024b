package pkg

import "clixen"

func AssertNoError(err error) {
	if err != nil {
		clixen.Logger.Error().Err(err).Msg("Error occurred that should not have occurred.")
		panic(err)
	}
}
