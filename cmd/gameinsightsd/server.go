package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"gameinsights-backend/internal/collector"
	"gameinsights-backend/internal/gamedata"
	"gameinsights-backend/internal/gamesearch"
)

// gameCollector is the slice of the collector the http surface needs.
type gameCollector interface {
	Collect(ctx context.Context, appid string) (*gamedata.Record, error)
	ActivePlayers(ctx context.Context, appids []string) collector.PlayerTable
}

type gameSearcher interface {
	Search(ctx context.Context, name string, topN int) ([]gamesearch.Match, error)
}

type server struct {
	collector gameCollector
	searcher  gameSearcher
}

func newServer(c gameCollector, s gameSearcher) *server {
	return &server{collector: c, searcher: s}
}

func (s *server) mux() *http.ServeMux {
	inner := http.NewServeMux()
	inner.HandleFunc("GET /v1/games/{appid}", s.handleGame)
	inner.HandleFunc("GET /v1/games/{appid}/recap", s.handleRecap)
	inner.HandleFunc("GET /v1/games/{appid}/active-players", s.handleActivePlayers)
	inner.HandleFunc("GET /v1/search", s.handleSearch)
	inner.HandleFunc("GET /healthz", s.handleHealthz)

	outer := http.NewServeMux()
	outer.Handle("/", requestId(inner))
	return outer
}

// requestId tags every request with a uuid, on the response header and
// on the request log line.
func requestId(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		slog.Info("request", "id", id, "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func (s *server) handleGame(w http.ResponseWriter, r *http.Request) {
	rec, err := s.collector.Collect(r.Context(), r.PathValue("appid"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJson(w, http.StatusOK, rec)
}

func (s *server) handleRecap(w http.ResponseWriter, r *http.Request) {
	rec, err := s.collector.Collect(r.Context(), r.PathValue("appid"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJson(w, http.StatusOK, rec.Recap())
}

func (s *server) handleActivePlayers(w http.ResponseWriter, r *http.Request) {
	table := s.collector.ActivePlayers(r.Context(), []string{r.PathValue("appid")})
	writeJson(w, http.StatusOK, table)
}

func (s *server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("missing q parameter"))
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("limit must be a positive integer"))
			return
		}
		limit = n
	}

	matches, err := s.searcher.Search(r.Context(), query, limit)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJson(w, http.StatusOK, matches)
}

func (s *server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJson(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJson(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJson(w, status, map[string]string{"error": err.Error()})
}
