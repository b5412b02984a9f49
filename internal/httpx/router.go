package httpx

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brightreach/campaign-refresh/internal/refresh"
	"github.com/brightreach/campaign-refresh/internal/utils"
)

type refreshRequest struct {
	CampaignIDs []string `json:"campaignIds"`
}

func NewRouter(log *slog.Logger, orch *refresh.Orchestrator) http.Handler {
	mux := chi.NewRouter()
	mux.Use(utils.RequestID)
	mux.Use(utils.Logger(log))

	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
	mux.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ready")) })
	mux.Handle("/metrics", promhttp.Handler())

	mux.Post("/refresh/run", func(w http.ResponseWriter, r *http.Request) {
		var req refreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", 400)
			return
		}
		if len(req.CampaignIDs) == 0 {
			http.Error(w, "campaignIds required", 400)
			return
		}

		// One NDJSON line per event. Closing the connection cancels the
		// batch at its next checkpoint via the request context.
		w.Header().Set("Content-Type", "application/x-ndjson")
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(200)
		flusher, canFlush := w.(http.Flusher)

		enc := json.NewEncoder(w)
		for ev := range orch.Run(r.Context(), req.CampaignIDs) {
			if err := enc.Encode(ev); err != nil {
				return
			}
			if canFlush {
				flusher.Flush()
			}
		}
	})

	return mux
}
