package rest

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aliskhannn/lesson-engine/internal/tracing"
)

// RouterConfig holds the cross-cutting settings of the router.
type RouterConfig struct {
	JWTSecret      string
	RateLimit      int
	RateWindow     time.Duration
	TracingEnabled bool
}

// NewRouter wires middleware and routes.
func NewRouter(h *Handler, cfg RouterConfig, observer RequestObserver, metricsHandler http.Handler, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), Recovery(logger), Logger(logger), Metrics(observer))
	if cfg.TracingEnabled {
		r.Use(tracing.GinMiddleware())
	}

	r.GET("/metrics", gin.WrapH(metricsHandler))

	api := r.Group("/api")
	api.GET("/health", h.Health)

	authorized := api.Group("")
	authorized.Use(Auth(cfg.JWTSecret), RateLimiter(cfg.RateLimit, cfg.RateWindow))
	{
		lesson := authorized.Group("/lesson")
		lesson.POST("/start", h.StartLesson)
		lesson.GET("/next", h.NextExercise)
		lesson.POST("/answer", h.SubmitAnswer)
		lesson.GET("/summary", h.Summary)
		lesson.GET("/sessions/:id", h.GetSession)

		vocabulary := authorized.Group("/vocabulary")
		vocabulary.GET("", h.ListVocabulary)
		vocabulary.POST("/:item_id", h.AddVocabulary)
		vocabulary.DELETE("/:item_id", h.RemoveVocabulary)

		authorized.GET("/languages", h.ListLanguages)
	}

	return r
}
