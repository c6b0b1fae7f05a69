package app

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"ignite-call/internal/apperr"
)

const ctxUserID = "userID"

// AuthMiddleware accepts HS256 bearer tokens issued by the identity provider.
// The token subject is the user id.
func AuthMiddleware(secret string) gin.HandlerFunc {
	secret = strings.TrimSpace(secret)

	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			apperr.Respond(c, nil, apperr.NewUnauthorized("Autenticação necessária."))
			return
		}
		parts := strings.Fields(auth)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			apperr.Respond(c, nil, apperr.NewUnauthorized("Formato de autorização inválido."))
			return
		}

		var claims jwt.RegisteredClaims
		_, err := jwt.ParseWithClaims(parts[1], &claims, func(token *jwt.Token) (interface{}, error) {
			// block alg confusion
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrTokenMalformed
			}
			return []byte(secret), nil
		}, jwt.WithLeeway(5*time.Second))
		if err != nil || claims.Subject == "" {
			apperr.Respond(c, nil, apperr.NewUnauthorized("Token inválido."))
			return
		}

		c.Set(ctxUserID, claims.Subject)
		c.Next()
	}
}

func currentUserID(c *gin.Context) string {
	return c.GetString(ctxUserID)
}
