package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"habbit-backend-go/internal/cache"
	"habbit-backend-go/internal/config"
	"habbit-backend-go/internal/core"
	"habbit-backend-go/internal/db"
	"habbit-backend-go/internal/middleware"
)

// SetupRoutes configures all the application routes with their handlers and
// middleware. Global middleware (logging, recovery, CORS) is expected to be applied
// to the router before this is called, typically in main.go.
func SetupRoutes(
	router *gin.Engine,
	appConfig *config.Config,
	logger *zap.Logger,
	sessions *core.SessionManager,
	suggestions core.SuggestionService,
	cacheStore cache.Store,
) {
	// Firebase Auth client must be available after db.InitFirestore().
	firebaseAuthClient := db.GetFirebaseAuthClient()
	if firebaseAuthClient == nil {
		logger.Fatal("CRITICAL_SETUP_ERROR: Firebase Auth client is not initialized. Routes will not be set up.")
		panic("Firebase Auth client is nil during route setup")
	}
	authMW := middleware.NewAuthMiddleware(firebaseAuthClient)

	sessionHandler := NewSessionHandler(sessions)
	habitHandler := NewHabitHandler(sessions, suggestions)
	aiHandler := NewAIHandler(sessions, suggestions)
	prefsHandler := NewPreferencesHandler(cacheStore)

	apiV1 := router.Group("/api/v1", authMW.VerifyToken())
	{
		// Session lifecycle: attach on login, detach on logout.
		apiV1.POST("/session/attach", sessionHandler.Attach)
		apiV1.DELETE("/session", sessionHandler.Detach)

		// Snapshot and day progress.
		apiV1.GET("/snapshot", habitHandler.GetSnapshot)
		apiV1.GET("/progress/:date", habitHandler.GetProgress)

		// Habit mutations.
		habitsGroup := apiV1.Group("/habits")
		{
			habitsGroup.POST("", habitHandler.AddHabit)
			habitsGroup.DELETE("/:habitId", habitHandler.DeleteHabit)
			habitsGroup.POST("/:habitId/toggle", habitHandler.ToggleHabit)
			habitsGroup.POST("/copy", habitHandler.CopyHabits)
		}

		// Daily notes.
		apiV1.PUT("/notes/:date", habitHandler.SetNote)

		// AI suggestions. Tag suggestions run implicitly on habit add; these
		// are the explicitly requested ones.
		aiGroup := apiV1.Group("/ai")
		{
			aiGroup.POST("/priority", aiHandler.RefreshPriority)
			aiGroup.GET("/briefing", aiHandler.GetBriefing)
		}

		// Device-local preferences.
		apiV1.GET("/preferences", prefsHandler.GetPreferences)
		apiV1.PUT("/preferences", prefsHandler.UpdatePreferences)
		apiV1.POST("/tutorial/seen", prefsHandler.MarkTutorialSeen)
	}

	// Public health check, outside /api/v1.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP", "message": "Habbit backend is healthy."})
	})

	logger.Info("API routes configured successfully under /api/v1 and /health.")
}
