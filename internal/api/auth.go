package api

import (
	"net/http"
	"strings"

	"github.com/blog-engagement-api/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const subjectKey = "subject"

// Claims are the bearer token claims issued by the auth service. The
// subject id comes from uid, falling back to sub.
type Claims struct {
	UID  string `json:"uid,omitempty"`
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// authMiddleware verifies HS256 bearer tokens. When required is false a
// request without a token continues anonymously; a bad token is always
// rejected.
func authMiddleware(secret string, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			if required {
				unauthorized(c, "missing bearer token")
				return
			}
			c.Next()
			return
		}
		if secret == "" {
			unauthorized(c, "token verification is not configured")
			return
		}

		var claims Claims
		token, err := jwt.ParseWithClaims(
			strings.TrimSpace(header[len("bearer "):]),
			&claims,
			func(t *jwt.Token) (interface{}, error) {
				return []byte(secret), nil
			},
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		)
		if err != nil || !token.Valid {
			unauthorized(c, "invalid token")
			return
		}

		uid := claims.UID
		if uid == "" {
			uid = claims.Subject
		}
		if uid == "" {
			unauthorized(c, "token has no subject")
			return
		}

		c.Set(subjectKey, models.Subject{ID: uid, Role: claims.Role})
		c.Next()
	}
}

// subjectFrom returns the authenticated subject of the request, if any
func subjectFrom(c *gin.Context) (models.Subject, bool) {
	v, ok := c.Get(subjectKey)
	if !ok {
		return models.Subject{}, false
	}
	s, ok := v.(models.Subject)
	return s, ok
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": msg,
		"kind":  "unauthenticated",
	})
}
