package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ankora/ankora/internal/domain"
	"github.com/ankora/ankora/internal/scheduler"
	"github.com/ankora/ankora/internal/storage"
	"github.com/ankora/ankora/internal/sync"
)

// Server holds the dependencies for the HTTP API.
type Server struct {
	db       *storage.DB
	sched    *scheduler.Scheduler
	router   *http.ServeMux
	validate *validator.Validate
	syncOpts sync.Options
}

// NewServer creates and configures a new server.
func NewServer(db *storage.DB, sched *scheduler.Scheduler, syncOpts sync.Options) *Server {
	s := &Server{
		db:       db,
		sched:    sched,
		router:   http.NewServeMux(),
		validate: validator.New(),
		syncOpts: syncOpts,
	}
	s.routes()
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// routes sets up the routing for the server.
func (s *Server) routes() {
	s.router.HandleFunc("/api/review", s.handlePostReview())
	s.router.HandleFunc("/api/cards/due", s.handleGetDueCards())
	s.router.HandleFunc("/api/stats", s.handleGetStats())
	s.router.HandleFunc("/api/stats/workload", s.handleGetWorkload())
	s.router.HandleFunc("/api/stats/forgetting-curve", s.handleGetForgettingCurve())
	s.router.HandleFunc("/api/schedule/optimize", s.handleGetOptimizedSchedule())
	s.router.HandleFunc("/api/sync", s.handlePostSync())
	s.router.HandleFunc("/api/sources", s.handleSources())
	s.router.HandleFunc("/api/sources/", s.handleDeleteSource())
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// reviewRequest is the payload for answering a card.
type reviewRequest struct {
	CardID    string `json:"cardId" validate:"required"`
	UserID    string `json:"userId" validate:"required"`
	Quality   int    `json:"quality" validate:"gte=0,lte=5"`
	TimeTaken int    `json:"timeTaken" validate:"gte=0"`
}

// handlePostReview processes one answer and returns the scheduling decision.
func (s *Server) handlePostReview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		var req reviewRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if err := s.validate.Struct(req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		result, err := s.sched.ProcessAnswer(req.CardID, req.UserID, req.Quality, req.TimeTaken)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrCardNotFound):
				writeError(w, http.StatusNotFound, "card not found")
			case errors.Is(err, domain.ErrInvalidQuality):
				writeError(w, http.StatusBadRequest, err.Error())
			default:
				slog.Error("failed to process answer", "card", req.CardID, "error", err)
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// handleGetDueCards returns the prioritized due cards for a user.
func (s *Server) handleGetDueCards() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		userID := r.URL.Query().Get("userId")
		if userID == "" {
			writeError(w, http.StatusBadRequest, "userId is required")
			return
		}

		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				writeError(w, http.StatusBadRequest, "invalid limit")
				return
			}
			limit = n
		}

		includeLearning := true
		if v := r.URL.Query().Get("includeLearning"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid includeLearning")
				return
			}
			includeLearning = b
		}

		cards, err := s.sched.DueCards(userID, limit, includeLearning)
		if err != nil {
			slog.Error("failed to get due cards", "user", userID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		if cards == nil {
			cards = []domain.Card{}
		}
		writeJSON(w, http.StatusOK, cards)
	}
}

// handleGetStats returns the user's learning statistics.
func (s *Server) handleGetStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		userID := r.URL.Query().Get("userId")
		if userID == "" {
			writeError(w, http.StatusBadRequest, "userId is required")
			return
		}
		writeJSON(w, http.StatusOK, s.sched.LearningStatistics(userID))
	}
}

// handleGetWorkload returns the predicted per-day review workload.
func (s *Server) handleGetWorkload() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		userID := r.URL.Query().Get("userId")
		if userID == "" {
			writeError(w, http.StatusBadRequest, "userId is required")
			return
		}

		days := 7
		if v := r.URL.Query().Get("days"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 || n > 365 {
				writeError(w, http.StatusBadRequest, "invalid days")
				return
			}
			days = n
		}

		workload := s.sched.PredictWorkload(userID, days)
		if workload == nil {
			workload = []domain.WorkloadDay{}
		}
		writeJSON(w, http.StatusOK, workload)
	}
}

// handleGetForgettingCurve returns retention bucketed by prior interval.
func (s *Server) handleGetForgettingCurve() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		userID := r.URL.Query().Get("userId")
		if userID == "" {
			writeError(w, http.StatusBadRequest, "userId is required")
			return
		}

		daysBack := 90
		if v := r.URL.Query().Get("daysBack"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				writeError(w, http.StatusBadRequest, "invalid daysBack")
				return
			}
			daysBack = n
		}

		points := s.sched.ForgettingCurve(userID, daysBack)
		if points == nil {
			points = []domain.ForgettingCurvePoint{}
		}
		writeJSON(w, http.StatusOK, points)
	}
}

// handleGetOptimizedSchedule returns study-schedule recommendations.
func (s *Server) handleGetOptimizedSchedule() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		userID := r.URL.Query().Get("userId")
		if userID == "" {
			writeError(w, http.StatusBadRequest, "userId is required")
			return
		}

		target := 20
		if v := r.URL.Query().Get("targetDailyReviews"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				writeError(w, http.StatusBadRequest, "invalid targetDailyReviews")
				return
			}
			target = n
		}

		maxNew := 10
		if v := r.URL.Query().Get("maxNewCards"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				writeError(w, http.StatusBadRequest, "invalid maxNewCards")
				return
			}
			maxNew = n
		}

		writeJSON(w, http.StatusOK, s.sched.OptimizeSchedule(userID, target, maxNew))
	}
}

// handlePostSync triggers a source sync in the foreground.
func (s *Server) handlePostSync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		if err := sync.Run(s.db, s.syncOpts); err != nil {
			slog.Error("sync failed", "error", err)
			writeError(w, http.StatusInternalServerError, "sync failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// sourceResponse is the JSON shape of a card source.
type sourceResponse struct {
	ID          int64      `json:"id"`
	Path        string     `json:"path"`
	Type        string     `json:"type"`
	LastScanned *time.Time `json:"lastScanned,omitempty"`
}

func toSourceResponse(src storage.Source) sourceResponse {
	out := sourceResponse{ID: src.ID, Path: src.Path, Type: src.Type}
	if src.LastScanned.Valid {
		t := src.LastScanned.Time
		out.LastScanned = &t
	}
	return out
}

// handleSources handles both GET and POST for the source collection.
func (s *Server) handleSources() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			s.handleGetSources(w, r)
		case http.MethodPost:
			s.handlePostSource(w, r)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	}
}

func (s *Server) handleGetSources(w http.ResponseWriter, _ *http.Request) {
	sources, err := s.db.GetAllSources()
	if err != nil {
		slog.Error("failed to get sources", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	out := make([]sourceResponse, 0, len(sources))
	for _, src := range sources {
		out = append(out, toSourceResponse(src))
	}
	writeJSON(w, http.StatusOK, out)
}

type sourceRequest struct {
	Path string `json:"path" validate:"required"`
}

func (s *Server) handlePostSource(w http.ResponseWriter, r *http.Request) {
	var req sourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := s.db.InsertSource(req.Path, sync.DetectType(req.Path))
	if err != nil {
		slog.Error("failed to insert source", "path", req.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to add source")
		return
	}

	src, err := s.db.FindSourceByPath(req.Path)
	if err != nil || src == nil {
		writeJSON(w, http.StatusCreated, sourceResponse{ID: id, Path: req.Path, Type: sync.DetectType(req.Path)})
		return
	}
	writeJSON(w, http.StatusCreated, toSourceResponse(*src))
}

// handleDeleteSource deletes a source and the cards imported from it.
func (s *Server) handleDeleteSource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		idStr := strings.TrimPrefix(r.URL.Path, "/api/sources/")
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid source ID")
			return
		}

		if err := s.db.DeleteSource(id); err != nil {
			slog.Error("failed to delete source", "id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to delete source")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
