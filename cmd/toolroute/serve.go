package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"toolroute/internal/domain"
	"toolroute/internal/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
)

const metricsFlushInterval = time.Minute

type planRequest struct {
	Query string `json:"query"`
}

type routeRequest struct {
	Text     string `json:"text"`
	Category string `json:"category"`
	Hint     string `json:"hint"`
}

type answerRequest struct {
	Query      string `json:"query"`
	Dump       string `json:"dump"`
	Capability string `json:"capability"`
}

type answerResponse struct {
	Reply string `json:"reply"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func serveCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the routing engine and its metrics over HTTP",
		Long: `Serves POST /v1/plan, /v1/route and /v1/answer backed by the registry
catalog, plus the metrics endpoint when metrics are enabled.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			srv := &http.Server{Addr: listen, Handler: newRouter(a), ReadHeaderTimeout: 5 * time.Second}

			ctx, cancel := context.WithCancel(cmd.Context())
			stopped := make(chan struct{})
			defer func() {
				cancel()
				<-stopped
			}()
			go func() {
				defer close(stopped)
				ticker := time.NewTicker(metricsFlushInterval)
				defer ticker.Stop()
				for {
					select {
					case <-ticker.C:
						a.flushMetrics(ctx)
					case <-ctx.Done():
						shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
						defer cancel()
						srv.Shutdown(shutdownCtx)
						return
					}
				}
			}()

			logger.Info("serving", "addr", listen, "metrics", a.cfg.Metrics.Enabled, "endpoint", a.cfg.Metrics.Endpoint)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&listen, "listen", ":8080", "address to listen on")
	return cmd
}

// newRouter mounts the engine operations and, when enabled, the metrics
// endpoint.
func newRouter(a *app) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok\n"))
	})
	if a.cfg.Metrics.Enabled {
		r.Get(a.cfg.Metrics.Endpoint, metrics.Collector.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/plan", func(w http.ResponseWriter, r *http.Request) {
			var req planRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeErr(w, http.StatusBadRequest, "invalid_json", "invalid request body")
				return
			}
			writeJSON(w, http.StatusOK, a.engine.PlanWorkflow(req.Query))
		})

		r.Post("/route", func(w http.ResponseWriter, r *http.Request) {
			var req routeRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeErr(w, http.StatusBadRequest, "invalid_json", "invalid request body")
				return
			}
			if strings.TrimSpace(req.Text) == "" {
				writeErr(w, http.StatusBadRequest, "invalid_step", "text is required")
				return
			}
			refs := a.engine.SelectCapabilitiesForStep(domain.WorkflowStep{
				Text:             req.Text,
				RequiredCategory: domain.ParseCategory(req.Category),
				ToolHint:         req.Hint,
			})
			if refs == nil {
				refs = []domain.CapabilityRef{}
			}
			writeJSON(w, http.StatusOK, refs)
		})

		r.Post("/answer", func(w http.ResponseWriter, r *http.Request) {
			var req answerRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeErr(w, http.StatusBadRequest, "invalid_json", "invalid request body")
				return
			}
			chosen := chosenCapability(r.Context(), a, req.Capability)
			writeJSON(w, http.StatusOK, answerResponse{Reply: a.engine.FormatAnswer(req.Query, req.Dump, chosen)})
		})
	})
	return r
}

func writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}

func writeErr(w http.ResponseWriter, code int, errCode, message string) {
	writeJSON(w, code, apiError{Code: errCode, Message: message})
}
