package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AngelCh415/agentic-analyst/internal/analysis"
	"github.com/AngelCh415/agentic-analyst/internal/ingest"
	"github.com/AngelCh415/agentic-analyst/internal/metrics"
	"github.com/AngelCh415/agentic-analyst/internal/telemetry"
	"github.com/AngelCh415/agentic-analyst/internal/utils"
)

const maxBody = 1 << 16

type runRequest struct {
	Query string `json:"query"`
}

func NewRouter(log *slog.Logger, svc *analysis.Service, mSvc *metrics.Service, obs *telemetry.Metrics) http.Handler {
	mux := chi.NewRouter()
	mux.Use(utils.RequestID)
	mux.Use(utils.Logger(log))

	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
	mux.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if len(svc.Context().Trend) == 0 {
			http.Error(w, "no data loaded", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(200)
		w.Write([]byte("ready"))
	})
	mux.Handle("/metrics", obs.Handler())

	mux.Route("/api/session", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) { writeJSON(w, 200, svc.Session()) })

		r.Post("/run", func(w http.ResponseWriter, r *http.Request) {
			var req runRequest
			if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&req); err != nil {
				http.Error(w, "bad json body", 400)
				return
			}
			id, err := svc.Start(req.Query)
			switch {
			case errors.Is(err, analysis.ErrEmptyQuery):
				http.Error(w, err.Error(), 400)
				return
			case errors.Is(err, analysis.ErrBusy):
				http.Error(w, err.Error(), http.StatusConflict)
				return
			case err != nil:
				http.Error(w, err.Error(), 500)
				return
			}
			writeJSON(w, http.StatusAccepted, map[string]any{"id": id})
		})

		r.Post("/reset", func(w http.ResponseWriter, r *http.Request) {
			n, err := svc.Regenerate(r.Context())
			if err != nil {
				http.Error(w, err.Error(), 502)
				return
			}
			writeJSON(w, 200, map[string]any{"records": n, "id": svc.Session().ID})
		})

		r.Post("/export", func(w http.ResponseWriter, r *http.Request) {
			n, err := svc.Export(r.Context())
			switch {
			case errors.Is(err, analysis.ErrBusy):
				http.Error(w, err.Error(), http.StatusConflict)
				return
			case errors.Is(err, ingest.ErrSinkNotConfigured):
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			case err != nil:
				http.Error(w, err.Error(), 502)
				return
			}
			writeJSON(w, 200, map[string]any{"exported": n})
		})
	})

	mux.Route("/api/data", func(r chi.Router) {
		r.Get("/summary", func(w http.ResponseWriter, r *http.Request) { writeJSON(w, 200, mSvc.Summary()) })
		r.Get("/creatives", func(w http.ResponseWriter, r *http.Request) { writeJSON(w, 200, mSvc.LowPerformers()) })

		r.Get("/trend", func(w http.ResponseWriter, r *http.Request) {
			rows, err := mSvc.QueryTrend(r.URL.Query())
			if err != nil {
				http.Error(w, err.Error(), 400)
				return
			}
			writeJSON(w, 200, rows)
		})

		r.Get("/campaigns", func(w http.ResponseWriter, r *http.Request) {
			rows, err := mSvc.QueryCampaigns(r.URL.Query())
			if err != nil {
				http.Error(w, err.Error(), 400)
				return
			}
			writeJSON(w, 200, rows)
		})
	})

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", " ")
	enc.Encode(v)
}
