package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/hlog"

	"github.com/vasapolrittideah/car-rental-api/shared/utilities"
)

const readyTimeout = 2 * time.Second

type statusResponse struct {
	Status string `json:"status"`
}

func health(w http.ResponseWriter, r *http.Request) {
	utilities.WriteSuccess(w, r, http.StatusOK, statusResponse{Status: "ok"})
}

func ready(pinger Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if pinger != nil {
			ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
			defer cancel()

			if err := pinger.Ping(ctx); err != nil {
				hlog.FromRequest(r).Warn().Err(err).Msg("readiness check failed")
				utilities.WriteError(w, r, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "store is unreachable", nil)
				return
			}
		}

		utilities.WriteSuccess(w, r, http.StatusOK, statusResponse{Status: "ready"})
	}
}
