package httpserver

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	rankingengine "scarab/contexts/opinion-markets/ranking-engine"
	rankingerrors "scarab/contexts/opinion-markets/ranking-engine/domain/errors"
	rankinghttp "scarab/contexts/opinion-markets/ranking-engine/transport/http"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "scarab/internal/platform/httpserver/docs"
)

type Server struct {
	mux         *http.ServeMux
	logger      *slog.Logger
	addr        string
	serviceName string
	apiKey      string
	ranking     rankingengine.Module
}

func New(
	ranking rankingengine.Module,
	apiKey string,
	serviceName string,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}
	if serviceName == "" {
		serviceName = "scarab"
	}

	s := &Server{
		mux:         http.NewServeMux(),
		logger:      logger,
		addr:        addr,
		serviceName: serviceName,
		apiKey:      apiKey,
		ranking:     ranking,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

// Handler exposes the route mux for in-process tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("GET /api/rankings/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/rankings/history", s.handleHistory)
	s.mux.HandleFunc("POST /api/rankings/resolve", s.handleResolve)
	s.mux.HandleFunc("GET /api/rankings/resolve", s.handleResolveStatus)
	s.mux.HandleFunc("GET /api/rankings/{category}", s.handleCurrentRanking)
	s.mux.HandleFunc("POST /api/rankings/{category}/vote", s.handleVote)
	s.mux.HandleFunc("GET /api/rankings/{category}/resolved", s.handleResolvedRanking)
	s.mux.HandleFunc("GET /api/users/{address}/predictions", s.handlePredictions)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ranking.Handler.HealthHandler(r.Context(), s.serviceName)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, rankinghttp.HealthResponse{
			Status:  "degraded",
			Service: s.serviceName,
		})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit := 0
	if limitRaw := query.Get("limit"); limitRaw != "" {
		parsed, err := strconv.Atoi(limitRaw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
			return
		}
		limit = parsed
	}

	resp, err := s.ranking.Handler.HistoryHandler(r.Context(), query.Get("category"), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleResolve is the manual trigger: it closes every due round, or previews
// the batch when dry_run is set. A shared API key guards the mutating path.
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized", rankingerrors.ErrUnauthorizedTrigger.Error())
		return
	}

	dryRun := isTruthy(r.URL.Query().Get("dry_run"))
	resp, err := s.ranking.Handler.ResolveExpiredHandler(r.Context(), dryRun)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleResolveStatus(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ranking.Handler.StatusHandler(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCurrentRanking(w http.ResponseWriter, r *http.Request) {
	category := r.PathValue("category")
	resp, err := s.ranking.Handler.CurrentRankingHandler(r.Context(), category)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	var req rankinghttp.SubmitVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	req.Category = r.PathValue("category")

	resp, err := s.ranking.Handler.SubmitVoteHandler(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleResolvedRanking(w http.ResponseWriter, r *http.Request) {
	category := r.PathValue("category")
	week := r.URL.Query().Get("week")
	resp, err := s.ranking.Handler.ResolvedRankingHandler(r.Context(), category, week)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePredictions(w http.ResponseWriter, r *http.Request) {
	address := r.PathValue("address")
	resp, err := s.ranking.Handler.PredictionsHandler(r.Context(), address)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) authorized(r *http.Request) bool {
	if s.apiKey == "" {
		return false
	}
	provided := strings.TrimSpace(r.Header.Get("X-Api-Key"))
	return subtle.ConstantTimeCompare([]byte(provided), []byte(s.apiKey)) == 1
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, rankingerrors.ErrRankingNotFound),
		errors.Is(err, rankingerrors.ErrVoteNotFound),
		errors.Is(err, rankingerrors.ErrUserNotFound),
		errors.Is(err, rankingerrors.ErrResolutionNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, rankingerrors.ErrInvalidVoteInput),
		errors.Is(err, rankingerrors.ErrDuplicateRankPositions):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, rankingerrors.ErrRankingClosed),
		errors.Is(err, rankingerrors.ErrRankingAlreadyResolved),
		errors.Is(err, rankingerrors.ErrResolutionExists):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, rankingerrors.ErrUnauthorizedTrigger):
		writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, rankinghttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func isTruthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	default:
		return false
	}
}
