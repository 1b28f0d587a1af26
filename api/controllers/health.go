package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/equipqr/equipqr-backend/api/responses"
	"github.com/equipqr/equipqr-backend/pkg/config"
	"github.com/equipqr/equipqr-backend/pkg/logger"
)

const readinessProbeTimeout = 2 * time.Second

// Pinger is the health-check surface each backing dependency exposes.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-EquipQR-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady probes every backing dependency and reports per-dependency
// status. Any failure flips the response to 503 so the load balancer stops
// routing traffic here.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP, redisP, storageP, queueP Pinger) http.HandlerFunc {
	probes := []struct {
		name   string
		pinger Pinger
	}{
		{"database", dbP},
		{"redis", redisP},
		{"storage", storageP},
		{"pubsub", queueP},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-EquipQR-Env", cfg.App.Env)

		statuses := make(map[string]string, len(probes))
		healthy := true
		for _, probe := range probes {
			if probe.pinger == nil {
				statuses[probe.name] = "not configured"
				continue
			}
			ctx, cancel := context.WithTimeout(r.Context(), readinessProbeTimeout)
			err := probe.pinger.Ping(ctx)
			cancel()
			if err != nil {
				healthy = false
				statuses[probe.name] = "unreachable"
				if logg != nil {
					logg.Error(r.Context(), "readiness probe failed: "+probe.name, err)
				}
				continue
			}
			statuses[probe.name] = "ok"
		}

		payload := map[string]any{
			"status":       "ready",
			"dependencies": statuses,
		}
		if !healthy {
			payload["status"] = "degraded"
			responses.WriteSuccessStatus(w, http.StatusServiceUnavailable, payload)
			return
		}
		responses.WriteSuccess(w, payload)
	}
}
