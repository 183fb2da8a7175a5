package serverhttp

import (
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"record-linkage/internal/config"
	linkHnd "record-linkage/internal/linkage/handler"
	"record-linkage/internal/linkage/model"
	"record-linkage/internal/metrics"
	"record-linkage/internal/middleware"
	"record-linkage/server/http/handlers"
)

func NewRouter(cfg config.Config, fields []model.FieldSpec, logger zerolog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// порядок важен: recover -> requestID -> logging -> cors -> limit
	r.Use(middleware.Recover(logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS(cfg.AllowOrigins))
	r.Use(middleware.LimitBytes(int64(cfg.MaxUploadMB) * 1024 * 1024))

	r.Get("/health", handlers.Health(cfg.SettingsFile))
	r.Method("GET", "/metrics", metrics.Handler())

	// основной эндпоинт
	r.Post("/link", linkHnd.Link(cfg, fields, logger))

	return r
}
