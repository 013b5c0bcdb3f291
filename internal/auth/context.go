package auth

import "github.com/gin-gonic/gin"

// Keys under which AuthRequired stores the session identity on the Gin
// context.
const (
	ctxUserIDKey    = "userID"
	ctxUserEmailKey = "userEmail"
)

// GetUserID returns the session user's ID, or "" outside an
// authenticated request.
func GetUserID(c *gin.Context) string {
	return contextString(c, ctxUserIDKey)
}

// GetUserEmail returns the session user's email, or "" outside an
// authenticated request.
func GetUserEmail(c *gin.Context) string {
	return contextString(c, ctxUserEmailKey)
}

func contextString(c *gin.Context, key string) string {
	if v, ok := c.Get(key); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
