// Package api contains all endpoints available
package api

import (
	"context"
	"strings"
	"time"

	"bitbnb/hosting-api/db"
	"bitbnb/hosting-api/middleware"
	"bitbnb/hosting-api/service"

	cache "github.com/chenyahui/gin-cache"
	"github.com/chenyahui/gin-cache/persist"
	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	gray  = "\x1b[90m"
	reset = "\x1b[0m"
)

type API struct {
	Uploader *service.Uploader
	Store    db.RecordStore
	Router   *gin.Engine

	cache persist.CacheStore
}

// NewRouter wires the endpoints. ctx bounds the background work of the
// middlewares.
func NewRouter(ctx context.Context, u *service.Uploader, store db.RecordStore) *API {
	a := &API{
		Uploader: u,
		Store:    store,
		cache:    persist.NewMemoryStore(time.Minute),
	}

	router := gin.New()
	a.Router = router

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     allowedOrigins(),
			AllowMethods:     []string{"GET", "POST", "HEAD", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "TurnstileToken"},
			ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		gin.Recovery(),
		middleware.NewRequestIDMiddleware(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == "HEAD"
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString("requestID"); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				return fields
			},
		}),
	)

	router.HandleMethodNotAllowed = true
	router.MaxMultipartMemory = 5 << 20

	turnstile := middleware.NewTurnstileMiddleware()
	maxUploadSize := viper.GetInt64("upload.max_size")

	limit := []gin.HandlerFunc{}
	if rps := viper.GetInt("security.rate_limit"); rps > 0 {
		limit = append(limit, middleware.RateLimiterMiddleware(ctx, middleware.RateLimiterConfig{
			RequestsPerSecond: rps,
			Burst:             rps * 2,
		}))
	}

	upload := router.Group("/upload", limit...)
	{
		// POST /upload				-> Adds a file to IPFS and records a short link for it
		upload.POST("", turnstile, middleware.BodySizeLimiter(maxUploadSize), a.Upload)

		// POST /upload/save-url	-> Records a short link for content stored elsewhere
		upload.POST("/save-url", middleware.BodySizeLimiter(1<<20), a.SaveURL)
	}

	main := router.Group("/api")
	{
		// HEAD /api/heartbeat 		-> Used to check if the server is alive
		main.HEAD("/heartbeat", a.Heartbeat)

		// GET /api/links			-> Returns a user's links, newest first
		main.GET("/links", a.LinkList)

		// GET /api/links/:shortId	-> Returns the record behind a short link
		main.GET("/links/:shortId", a.cacheFor(60), a.LinkFetch)
	}

	// GET /:shortId 				-> Redirects a short link to its content
	router.GET("/:shortId", a.LinkRedirect)

	return a
}

// MakeLogger replaces the global logger with a colored development logger
func MakeLogger(level string) {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = func(t time.Time, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + t.Format("15:04:05.000") + reset)
	}
	cfg.EncoderConfig.EncodeCaller = func(ec zapcore.EntryCaller, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + ec.TrimmedPath() + reset)
	}

	if lvl, err := zapcore.ParseLevel(level); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	cfg.DisableStacktrace = true

	log, _ := cfg.Build()
	zap.ReplaceGlobals(log)
}

func (a *API) cacheFor(sec int) gin.HandlerFunc {
	return cache.CacheByRequestURI(a.cache, time.Second*time.Duration(sec))
}

// allowedOrigins accepts both a list and a comma separated string
func allowedOrigins() []string {
	origins := []string{}
	for _, o := range viper.GetStringSlice("host.cors") {
		for _, part := range strings.Split(o, ",") {
			if part = strings.TrimSpace(part); part != "" {
				origins = append(origins, part)
			}
		}
	}

	if len(origins) == 0 {
		origins = []string{"http://localhost:5173"}
	}

	return origins
}
