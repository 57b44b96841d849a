// Package api contains all endpoints available
package api

import (
	"fmt"
	"time"

	"driftbin/paste-api/middleware"
	"driftbin/paste-api/storage"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	gray  = "\x1b[90m"
	reset = "\x1b[0m"
)

type API struct {
	Router *gin.Engine
	Store  *storage.StoreQueue
}

func NewRouter() (*API, error) {
	a := &API{}

	makeLogger()

	backend, err := storage.New()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage backend, %w", err)
	}
	a.Store = storage.NewStoreQueue(backend)

	router := gin.New()
	a.Router = router

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:  []string{"*"},
			AllowMethods:  []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
			ExposeHeaders: []string{"Content-Length"},
			MaxAge:        12 * time.Hour,
		}),
		gin.Recovery(),
		middleware.NewRequestIDMiddleware(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.URL.Path == "/healthz"
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
	router.RedirectFixedPath = true
	a.Router.MaxMultipartMemory = 5 << 20

	maxUploadSize := viper.GetInt64("upload.max_size")

	// GET /healthz			-> Used to check if the server is alive
	router.GET("/healthz", a.Healthz)

	// GET /api/languages		-> Returns the language list for the paste form
	router.GET("/api/languages", a.Languages)

	// POST /upload			-> Stores uploaded files with rendered views
	// The limit is per file, so the request cap leaves room for several.
	router.POST("/upload", middleware.BodySizeLimiter(10*maxUploadSize), a.Upload)

	// POST /paste			-> Stores a paste with a highlighted view
	router.POST("/paste", middleware.BodySizeLimiter(8<<20), a.Paste)

	if viper.GetString("storage.type") == "local" {
		// Serve stored objects directly so a local setup works end to end
		// without a separate file server.
		router.Static("/dev/object", viper.GetString("storage.object_path"))
		router.Static("/dev/html", viper.GetString("storage.html_path"))
	}

	a.Store.StartWorkerPool()

	return a, nil
}

func makeLogger() {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = func(t time.Time, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + t.Format("15:04:05.000") + reset)
	}
	cfg.EncoderConfig.EncodeCaller = func(ec zapcore.EntryCaller, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + ec.TrimmedPath() + reset)
	}

	cfg.DisableStacktrace = true

	if err := cfg.Level.UnmarshalText([]byte(viper.GetString("app.log_level"))); err != nil {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	log, _ := cfg.Build()

	if file := viper.GetString("app.log_file"); file != "" {
		fileCore := zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(&lumberjack.Logger{
				Filename:   file,
				MaxSize:    50,
				MaxBackups: 5,
				MaxAge:     28,
				Compress:   true,
			}),
			cfg.Level,
		)
		log = log.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return zapcore.NewTee(core, fileCore)
		}))
	}

	zap.ReplaceGlobals(log)
}
