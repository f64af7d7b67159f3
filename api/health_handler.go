package api

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ml4e-club/ml4e-site-backend/database"
	"github.com/ml4e-club/ml4e-site-backend/errs"
)

const pingTimeout = 2 * time.Second

type healthHandler struct {
	responder   Responder
	logger      zerolog.Logger
	manager     *database.Manager
	startupTime time.Time
}

func newHealthHandler(manager *database.Manager, startupTime time.Time) healthHandler {
	logger := log.With().Str("handlerName", "healthHandler").Logger()

	return healthHandler{
		responder:   NewResponder(logger),
		logger:      logger,
		manager:     manager,
		startupTime: startupTime,
	}
}

// HealthResponse reports store reachability and uptime
// @Description Health check response
type HealthResponse struct {
	Status  string  `json:"status" example:"ok"`
	Backend string  `json:"backend" example:"mongo"`
	Uptime  float64 `json:"uptime" example:"3600"`
}

// @Summary Health check
// @Description Pings the document store
// @Tags Health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 500 {object} ErrorResponse "Internal Server Error - Store unreachable"
// @Router /healthz [get]
func (h healthHandler) check() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		defer cancel()

		if err := h.manager.Ping(ctx); err != nil {
			h.responder.WriteError(w, errs.NewDatabaseError("ping", "database", err))
			return
		}

		h.responder.WriteJSON(w, HealthResponse{
			Status:  "ok",
			Backend: h.manager.Backend(),
			Uptime:  time.Since(h.startupTime).Seconds(),
		})
	}
}
