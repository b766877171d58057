package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/poltekatipdg/sipbmn-backend/api/responses"
	"github.com/poltekatipdg/sipbmn-backend/pkg/config"
	pkgerrors "github.com/poltekatipdg/sipbmn-backend/pkg/errors"
	"github.com/poltekatipdg/sipbmn-backend/pkg/logger"
)

const readyCheckTimeout = 2 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-SIPBMN-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, logg *logger.Logger, database, cache pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-SIPBMN-Env", cfg.App.Env)

		checks := map[string]pinger{
			"database": database,
			"redis":    cache,
		}
		for name, check := range checks {
			if check == nil {
				continue
			}
			ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
			err := check.Ping(ctx)
			cancel()
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable"))
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
