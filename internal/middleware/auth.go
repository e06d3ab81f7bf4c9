package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/medpractice/pkg/auth"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const sessionKey = "session"

type AccessTokenValidator interface {
	ValidateAccessToken(token string) (*domain.Claims, error)
}

// Authenticate validates the bearer token and stores a fresh Session for the
// request. Handlers read it with SessionFrom.
func Authenticate(tokens AccessTokenValidator, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			unauthorized(c, "missing or malformed authorization header")
			return
		}

		claims, err := tokens.ValidateAccessToken(strings.TrimSpace(token))
		if err != nil {
			log.Debug("access token rejected",
				zap.String("request_id", GetRequestID(c)),
				zap.Error(err),
			)
			if errors.Is(err, auth.ErrTokenExpired) {
				unauthorized(c, "token has expired")
				return
			}
			unauthorized(c, "invalid token")
			return
		}

		s := domain.SessionFromClaims(claims)
		s.IP = c.ClientIP()
		s.RequestID = GetRequestID(c)
		c.Set(sessionKey, s)
		c.Next()
	}
}

// RequireRoles rejects callers whose session holds none of roles.
func RequireRoles(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := SessionFrom(c)
		if !ok {
			unauthorized(c, "authentication required")
			return
		}
		if !s.HasRole(roles...) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"errors":  []string{"access denied"},
			})
			return
		}
		c.Next()
	}
}

func SessionFrom(c *gin.Context) (domain.Session, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return domain.Session{}, false
	}
	s, ok := v.(domain.Session)
	return s, ok
}

func unauthorized(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", `Bearer realm="medpractice"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"errors":  []string{msg},
	})
}
