package v1

import (
	"crypto/subtle"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/shenikar/fireguard_dispatch/internal/models"
)

const actorKey = "actor"

// APIKeyAuthMiddleware - middleware для аутентификации по API-ключу
func APIKeyAuthMiddleware(apiKeys []string, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader("X-API-Key")
		if apiKey == "" {
			// Проверяем также заголовок Authorization: Bearer
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				apiKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if apiKey == "" {
			log.Warn("API key missing from request")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "API key required"})
			return
		}

		valid := slices.ContainsFunc(apiKeys, func(key string) bool {
			return subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) == 1
		})
		if !valid {
			log.Warn("Invalid API key provided")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
			return
		}

		c.Next()
	}
}

// ActorMiddleware извлекает участника из заголовков провайдера идентификации.
// Личность не проверяется, провайдеру доверяем как есть.
func ActorMiddleware(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, err := models.ParseActor(c.GetHeader("X-Actor-ID"), c.GetHeader("X-Actor-Role"))
		if err != nil {
			log.WithError(err).Warn("Request without a valid actor")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "X-Actor-ID and X-Actor-Role headers are required"})
			return
		}
		c.Set(actorKey, actor)
		c.Next()
	}
}

func actorFrom(c *gin.Context) models.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(models.Actor); ok {
			return actor
		}
	}
	return models.Actor{}
}
