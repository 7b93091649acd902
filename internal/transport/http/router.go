package http

import (
	"net/http"
	"time"

	"github.com/Josephvarghes/Edu-Stack/internal/app"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterConfig carries what the router needs beyond the service.
type RouterConfig struct {
	Mode           string
	JWTSecret      string
	AllowedOrigins []string
	Logger         zerolog.Logger
}

// NewRouter wires every quiz endpoint under /api/v1.
func NewRouter(service *app.AttemptService, cfg RouterConfig) *gin.Engine {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	SetupValidator()

	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID", "X-User-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(RequestID())
	router.Use(RequestLogger(cfg.Logger.With().Str("component", "http").Logger()))

	router.GET("/healthz", func(c *gin.Context) {
		success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	attempts := NewAttemptHandler(service)
	ws := NewWSHandler(service, cfg.Logger, cfg.AllowedOrigins)

	api := router.Group("/api/v1")
	api.Use(Identity(cfg.JWTSecret))
	{
		api.GET("/quizzes", attempts.List)
		api.GET("/quizzes/:quizId", attempts.Details)
		api.POST("/quizzes/:quizId/start", attempts.Start)
		api.GET("/quizzes/:quizId/active", attempts.Active)
		api.GET("/quizzes/:quizId/questions/:index", attempts.Question)
		api.POST("/quizzes/:quizId/answers", attempts.Answer)
		api.GET("/quizzes/:quizId/preview", attempts.Preview)
		api.GET("/quizzes/:quizId/review", attempts.Review)
		api.POST("/quizzes/:quizId/submit", attempts.Submit)
		api.GET("/quizzes/:quizId/summary", attempts.Summary)
		api.GET("/quizzes/:quizId/attempts", attempts.History)
		api.GET("/quizzes/:quizId/ws", ws.ServeWS)
		api.GET("/attempts/:attemptId/questions/:index", attempts.QuestionByAttempt)
	}
	return router
}
