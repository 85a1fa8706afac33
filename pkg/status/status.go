// Package status serves a small read-only HTTP view of the bot state.
package status

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/disgoorg/json"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lmittmann/tint"

	"github.com/Kirdow/BrianBot/pkg/rates"
	"github.com/Kirdow/BrianBot/pkg/tz"
)

const shutdownTimeout = 5 * time.Second

type RateSource interface {
	Rate(ctx context.Context, code string, source string) (float64, bool)
}

type Server struct {
	zones tz.Table
	rates RateSource
}

func New(zones tz.Table, rates RateSource) *Server {
	return &Server{
		zones: zones,
		rates: rates,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.healthz)
	r.Route("/zones", func(r chi.Router) {
		r.Get("/", s.listZones)
		r.Get("/{abbr}", s.getZone)
	})
	r.Get("/rates/{source}/{code}", s.getRate)
	return r
}

// ListenAndServe serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("status: error while shutting down", tint.Err(err))
		}
	}()
	slog.Info("status: listening", slog.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"zones":  len(s.zones),
	})
}

func (s *Server) listZones(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.zones.Abbreviations())
}

func (s *Server) getZone(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.zones.Lookup(chi.URLParam(r, "abbr"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown timezone"})
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) getRate(w http.ResponseWriter, r *http.Request) {
	source := strings.ToLower(chi.URLParam(r, "source"))
	code := strings.ToLower(chi.URLParam(r, "code"))
	rate, ok := s.rates.Rate(r.Context(), code, source)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": rates.ErrUnknownCurrency.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"source": source,
		"code":   code,
		"rate":   rate,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		slog.Error("status: error while encoding a response", tint.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}
