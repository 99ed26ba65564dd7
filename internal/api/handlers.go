package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/yourusername/bet-advisor/internal/models"
)

// ErrorResponse is the JSON body of every failed request
type ErrorResponse struct {
	Error  string         `json:"error"`
	Alerts []models.Alert `json:"alerts,omitempty"`
}

// SettleResponse reports whether the settlement produced a bet record
type SettleResponse struct {
	Settled bool              `json:"settled"`
	Record  *models.BetRecord `json:"record,omitempty"`
}

// FitRequest sets the training cutoff; zero means now
type FitRequest struct {
	Cutoff time.Time `json:"cutoff"`
}

// ResetRequest optionally replaces the initial capital
type ResetRequest struct {
	InitialCapital *decimal.Decimal `json:"initial_capital,omitempty"`
}

func (s *Server) handleAdvise(w http.ResponseWriter, r *http.Request) {
	rec, err := s.advisor.Advise(r.Context(), chi.URLParam(r, "matchID"))
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	rec, err := s.advisor.Pending(r.Context(), chi.URLParam(r, "matchID"))
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

// handleSettle settles from the request body, or from the stored final score when the body is empty
func (s *Server) handleSettle(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "matchID")

	var settlement models.Settlement
	err := json.NewDecoder(r.Body).Decode(&settlement)
	var record *models.BetRecord
	switch {
	case errors.Is(err, io.EOF):
		record, err = s.advisor.SettleMatch(r.Context(), matchID)
	case err != nil:
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid settlement: %v", err))
		return
	default:
		record, err = s.advisor.Settle(r.Context(), matchID, settlement)
	}
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	if record != nil {
		s.hub.PublishSettlement(record)
	}
	respondJSON(w, http.StatusOK, SettleResponse{Settled: record != nil, Record: record})
}

func (s *Server) handleBankrollStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.advisor.BankrollStatus())
}

func (s *Server) handleBetHistory(w http.ResponseWriter, r *http.Request) {
	records := s.bankroll.Records()
	if records == nil {
		records = []models.BetRecord{}
	}
	respondJSON(w, http.StatusOK, records)
}

func (s *Server) handleBankrollReset(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}
	if err := s.bankroll.Reset(r.Context(), req.InitialCapital); err != nil {
		s.respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, s.advisor.BankrollStatus())
}

func (s *Server) handleFitModels(w http.ResponseWriter, r *http.Request) {
	var req FitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}
	if req.Cutoff.IsZero() {
		req.Cutoff = time.Now().UTC()
	}
	report, err := s.advisor.FitModels(r.Context(), req.Cutoff)
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	go s.hub.Serve(s.ctx, conn)
}

// respondFailure maps engine errors onto HTTP statuses
func (s *Server) respondFailure(w http.ResponseWriter, err error) {
	var halted *models.BankrollHaltedError
	switch {
	case errors.As(err, &halted):
		respondJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error(), Alerts: halted.Alerts})
	case errors.Is(err, models.ErrBankrollHalted):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, models.ErrMatchNotFound), errors.Is(err, models.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrInvalidInputs), errors.Is(err, models.ErrSchemaMismatch):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrNoModel), errors.Is(err, models.ErrInsufficientHistory):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, models.ErrNoMarket):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		respondError(w, http.StatusGatewayTimeout, err.Error())
	default:
		s.logger.WithError(err).Error("Request failed")
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}
