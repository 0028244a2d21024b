package pkg

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func ParseAndValidate(c *gin.Context, dto interface{}) error {
	if err := c.ShouldBindJSON(dto); err != nil {
		return err
	}
	return validate.Struct(dto)
}

// GetUserID pulls the authenticated user's id from the gin context. Replies
// 401 itself when the auth middleware did not run.
func GetUserID(c *gin.Context) (uint, bool) {
	v, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return 0, false
	}
	id, ok := v.(uint)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return 0, false
	}
	return id, true
}

// GetUserIdentity pulls the engine-isolation identity set by the auth
// middleware. Empty when running unauthenticated in dev mode.
func GetUserIdentity(c *gin.Context) string {
	v, exists := c.Get("userIdentity")
	if !exists {
		return ""
	}
	identity, _ := v.(string)
	return identity
}
