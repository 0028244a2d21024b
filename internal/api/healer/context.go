package healer

// EmailProvider carries the transactional email settings the email rewrite
// rule injects. Credentials are resolved by the caller, never hard-coded here.
type EmailProvider struct {
	Endpoint string
	APIKey   string
	From     string
}

// Context namespaces a healing run to one caller. Identity isolates names and
// webhook paths on the shared execution engine; Seed makes uniqueness-
// generating rules deterministic (callers pass a monotonic value instead of
// the rules reading the wall clock).
type Context struct {
	Identity string
	Seed     uint64
	Email    EmailProvider
}

const tagLength = 8

// Tag derives the short isolation tag shared by the naming and webhook-path
// rules. Empty when no identity was supplied.
func (c *Context) Tag() string {
	if c == nil || c.Identity == "" {
		return ""
	}
	if len(c.Identity) > tagLength {
		return c.Identity[:tagLength]
	}
	return c.Identity
}
