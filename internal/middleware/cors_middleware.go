package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"habbit-backend-go/internal/config"
)

// CORSMiddleware configures Cross-Origin Resource Sharing for the API. The habit
// tracker frontend is a browser app served from a different origin, so only the
// configured CLIENT_URL is allowed; the Authorization header must be allowed for
// the Firebase ID token to reach the auth middleware.
func CORSMiddleware(appConfig *config.Config) gin.HandlerFunc {
	if appConfig == nil || appConfig.ClientURL == "" {
		// main only installs this middleware when CLIENT_URL is set, so this is a
		// programming error, not a runtime condition. Panic rather than silently
		// falling back to a permissive policy.
		panic("ClientURL for CORS is not configured")
	}

	return cors.New(cors.Config{
		AllowOrigins: []string{appConfig.ClientURL},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		// "Authorization" carries the Firebase ID token on every request.
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		// Preflight results can be cached for a long time; the policy is static.
		MaxAge: 12 * time.Hour,
	})
}
