package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/library-backend/api/responses"
	"github.com/angelmondragon/library-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/library-backend/pkg/errors"
	"github.com/angelmondragon/library-backend/pkg/logger"
)

const readyTimeout = 2 * time.Second

// Pinger is a dependency checked by the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Library-Env", cfg.App.Env)
		responses.WriteSuccess(w, "", map[string]string{"status": "live"})
	}
}

// HealthReady pings every named dependency and reports 503 if any fails.
func HealthReady(cfg *config.Config, deps map[string]Pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Library-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable"))
				return
			}
		}
		responses.WriteSuccess(w, "", map[string]string{"status": "ready"})
	}
}

// Root describes the API.
func Root() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, "Library Management System API", map[string]string{"version": "1.0.0"})
	}
}

// NotFound renders the envelope for unknown routes.
func NotFound() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteError(r.Context(), nil, w, pkgerrors.New(pkgerrors.CodeNotFound, "Route not found"))
	}
}
