package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/loginjs/loginjs/internal/domain"
)

const errUnauthorized = "Unauthorized"

// sessionVerifier is the slice of the token service the middleware needs.
type sessionVerifier interface {
	Verify(kind domain.TokenKind, raw string) (string, error)
}

// Auth validates a Bearer session token and sets "accountID" in the gin
// context. Tokens of any other kind fail verification here: they are
// signed with different secrets and carry a different kind claim.
func Auth(tokens sessionVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
			return
		}

		rawToken := strings.TrimPrefix(header, "Bearer ")

		accountID, err := tokens.Verify(domain.TokenSession, rawToken)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
			return
		}

		c.Set("accountID", accountID)
		c.Next()
	}
}
