package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/emomatch/internal/api/handlers"
	"github.com/your-org/emomatch/internal/api/ws"
	"github.com/your-org/emomatch/internal/config"
	"github.com/your-org/emomatch/internal/intake"
	"github.com/your-org/emomatch/internal/matcher"
	"github.com/your-org/emomatch/internal/queue"
	"github.com/your-org/emomatch/internal/registrar"
	"github.com/your-org/emomatch/internal/storage"
	"github.com/your-org/emomatch/internal/store"
)

type RouterConfig struct {
	Emoji     config.EmojiConfig
	Intake    *intake.Intake
	Matcher   *matcher.Matcher
	Registrar *registrar.Registrar
	Store     store.Store
	Hub       *ws.Hub
	MinIO     *storage.MinIOStore // may be nil
	Events    *queue.Producer     // may be nil
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggingMiddleware())
	r.Use(cors.Default())

	// System endpoints
	systemH := handlers.NewSystemHandler(cfg.Store, cfg.MinIO, cfg.Events)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Event feed
	r.GET("/ws", cfg.Hub.HandleWS)

	// Emoji API
	emojiH := handlers.NewEmojiHandler(cfg.Intake, cfg.Matcher, cfg.Registrar,
		cfg.Store, cfg.Emoji, cfg.Hub, cfg.Events)
	api := r.Group("/api/emoji")
	api.POST("/upload", emojiH.Upload)
	api.POST("/match", emojiH.Match)
	api.POST("/register", emojiH.RegisterNow)
	api.GET("/unreviewed", emojiH.ListUnreviewed)
	api.GET("/approved", emojiH.ListApproved)

	return r
}
