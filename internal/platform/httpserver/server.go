package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	agendaledger "govote/contexts/governance/agenda-ledger"
	"govote/contexts/governance/agenda-ledger/domain/entities"
	domainerrors "govote/contexts/governance/agenda-ledger/domain/errors"
	agendahttp "govote/contexts/governance/agenda-ledger/transport/http"
	"govote/internal/platform/metrics"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	_ "govote/internal/platform/httpserver/docs"
)

type Server struct {
	mux     *http.ServeMux
	logger  *slog.Logger
	addr    string
	agenda  agendaledger.Module
	metrics *metrics.Collector
}

func New(
	agenda agendaledger.Module,
	collector *metrics.Collector,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if collector == nil {
		collector = metrics.NewCollector()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:     http.NewServeMux(),
		logger:  logger,
		addr:    addr,
		agenda:  agenda,
		metrics: collector,
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

// Handler exposes the route table for in-process tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	s.mux.Handle("GET /metrics", promhttp.HandlerFor(
		s.metrics.Registry,
		promhttp.HandlerOpts{},
	))

	s.mux.HandleFunc("POST /v1/agenda", s.handleInitialize)
	s.mux.HandleFunc("GET /v1/agenda", s.handleView)
	s.mux.HandleFunc("POST /v1/agenda/votes", s.handleCastVote)
	s.mux.HandleFunc("DELETE /v1/agenda/votes", s.handleCancelVote)
	s.mux.HandleFunc("POST /v1/agenda/tally", s.handleTally)
}

func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request) {
	var req agendahttp.InitializeAgendaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "POST /v1/agenda", http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.agenda.Handler.InitializeHandler(r.Context(), req)
	if err != nil {
		s.writeDomainError(w, "POST /v1/agenda", err)
		return
	}
	s.writeJSON(w, "POST /v1/agenda", http.StatusCreated, resp)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	resp, err := s.agenda.Handler.ViewHandler(r.Context())
	if err != nil {
		s.writeDomainError(w, "GET /v1/agenda", err)
		return
	}
	s.writeJSON(w, "GET /v1/agenda", http.StatusOK, resp)
}

func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request) {
	sender, ok := resolveSender(r)
	if !ok {
		s.writeError(w, "POST /v1/agenda/votes", http.StatusUnauthorized, "missing_sender", "X-Sender-Address header is required")
		return
	}
	observedAt, err := resolveObservedTime(r)
	if err != nil {
		s.writeError(w, "POST /v1/agenda/votes", http.StatusBadRequest, "invalid_observed_time", "X-Observed-Time must be RFC3339")
		return
	}

	var req agendahttp.CastVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "POST /v1/agenda/votes", http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.agenda.Handler.CastVoteHandler(r.Context(), sender, observedAt, req)
	if err != nil {
		s.writeDomainError(w, "POST /v1/agenda/votes", err)
		return
	}
	if resp.Changed {
		s.metrics.VotesChanged.Inc()
	} else {
		s.metrics.VotesCast.Inc()
	}
	s.writeJSON(w, "POST /v1/agenda/votes", http.StatusOK, resp)
}

func (s *Server) handleCancelVote(w http.ResponseWriter, r *http.Request) {
	sender, ok := resolveSender(r)
	if !ok {
		s.writeError(w, "DELETE /v1/agenda/votes", http.StatusUnauthorized, "missing_sender", "X-Sender-Address header is required")
		return
	}
	observedAt, err := resolveObservedTime(r)
	if err != nil {
		s.writeError(w, "DELETE /v1/agenda/votes", http.StatusBadRequest, "invalid_observed_time", "X-Observed-Time must be RFC3339")
		return
	}

	if err := s.agenda.Handler.CancelVoteHandler(r.Context(), sender, observedAt); err != nil {
		s.writeDomainError(w, "DELETE /v1/agenda/votes", err)
		return
	}
	s.metrics.VotesCancelled.Inc()
	s.writeJSON(w, "DELETE /v1/agenda/votes", http.StatusOK, map[string]string{"status": "cancelled"})
}

func (s *Server) handleTally(w http.ResponseWriter, r *http.Request) {
	resp, err := s.agenda.Handler.TallyHandler(r.Context())
	if err != nil {
		s.writeDomainError(w, "POST /v1/agenda/tally", err)
		return
	}
	s.metrics.Tallies.Inc()
	s.writeJSON(w, "POST /v1/agenda/tally", http.StatusOK, resp)
}

// resolveSender reads the caller identity the execution environment supplies.
// The kind header passes through verbatim; the engine rejects anything that
// is not a primary account.
func resolveSender(r *http.Request) (entities.Sender, bool) {
	address := strings.TrimSpace(r.Header.Get("X-Sender-Address"))
	if address == "" {
		return entities.Sender{}, false
	}
	kind := entities.SenderKind(strings.ToLower(strings.TrimSpace(r.Header.Get("X-Sender-Kind"))))
	if kind == "" {
		kind = entities.SenderKindAccount
	}
	return entities.Sender{Address: address, Kind: kind}, true
}

// resolveObservedTime reads the caller-observed clock used for the advisory
// expiry check. Absent header means the platform clock decides.
func resolveObservedTime(r *http.Request) (time.Time, error) {
	raw := strings.TrimSpace(r.Header.Get("X-Observed-Time"))
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, raw)
}

func (s *Server) writeDomainError(w http.ResponseWriter, route string, err error) {
	switch {
	case errors.Is(err, domainerrors.ErrInvalidParams):
		s.writeError(w, route, http.StatusBadRequest, "invalid_params", err.Error())
	case errors.Is(err, domainerrors.ErrAgendaExists):
		s.writeError(w, route, http.StatusConflict, "agenda_exists", err.Error())
	case errors.Is(err, domainerrors.ErrAgendaNotFound):
		s.writeError(w, route, http.StatusNotFound, "agenda_not_found", err.Error())
	case errors.Is(err, domainerrors.ErrProposalNotFound):
		s.writeError(w, route, http.StatusNotFound, "proposal_not_found", err.Error())
	case errors.Is(err, domainerrors.ErrVoterNotFound):
		s.writeError(w, route, http.StatusNotFound, "voter_not_found", err.Error())
	case errors.Is(err, domainerrors.ErrNotVoted):
		s.writeError(w, route, http.StatusConflict, "not_voted", err.Error())
	case errors.Is(err, domainerrors.ErrAlreadyFinished):
		s.writeError(w, route, http.StatusConflict, "already_finished", err.Error())
	case errors.Is(err, domainerrors.ErrExpired):
		s.writeError(w, route, http.StatusGone, "expired", err.Error())
	case errors.Is(err, domainerrors.ErrInvalidSender):
		s.writeError(w, route, http.StatusForbidden, "invalid_sender", err.Error())
	default:
		s.writeError(w, route, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func (s *Server) writeError(w http.ResponseWriter, route string, status int, code string, message string) {
	s.countRequest(route, status)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(agendahttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, route string, status int, payload any) {
	s.countRequest(route, status)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) countRequest(route string, status int) {
	s.metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}
