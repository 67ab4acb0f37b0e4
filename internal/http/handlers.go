package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"haushalt/internal/budget"
	"haushalt/internal/core"
)

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, errorResponse{Error: msg})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, budget.ErrProfileNotFound):
		return http.StatusNotFound
	case errors.Is(err, budget.ErrNotConfigured),
		errors.Is(err, budget.ErrStaleProfile):
		return http.StatusConflict
	case errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrZeroDate),
		errors.Is(err, core.ErrInvalidDueDay),
		errors.Is(err, core.ErrInvalidFrequency):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondDomainError(w http.ResponseWriter, r *http.Request, err error, op string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "Request failed", "op", op, "error", err)
		respondError(w, status, "internal error")
		return
	}
	respondError(w, status, err.Error())
}

// handleProfile serves GET /profile. Loading a profile runs the full
// pipeline, so the response already reflects any monthly reset and any
// recurring charges that came due.
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	uid := userID(r)
	if uid == "" {
		respondError(w, http.StatusBadRequest, "missing "+userIDHeader+" header")
		return
	}

	// A cached session can lag a month or due-day boundary by up to the
	// cache TTL. That staleness bound is accepted; every write path
	// invalidates the entry immediately.
	if session, found := s.sessionCache.Get(uid); found {
		respondJSON(w, http.StatusOK, session)
		return
	}

	session, err := s.engine.LoadSession(r.Context(), uid, time.Now())
	if err != nil {
		s.respondDomainError(w, r, err, "load session")
		return
	}

	s.sessionCache.Set(uid, *session)
	respondJSON(w, http.StatusOK, session)
}

type budgetRequest struct {
	MonthlyBudget float64 `json:"monthlyBudget"`
	SavingsGoal   float64 `json:"savingsGoal"`
}

// handleBudget serves POST /budget (initial setup, rebases the remaining
// budget) and PUT /budget (settings update, leaves the remaining budget
// untouched).
func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodPut {
		w.Header().Set("Allow", "POST, PUT")
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	uid := userID(r)
	if uid == "" {
		respondError(w, http.StatusBadRequest, "missing "+userIDHeader+" header")
		return
	}

	var req budgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var prof *core.Profile
	var err error
	if r.Method == http.MethodPost {
		prof, err = s.engine.Configure(r.Context(), uid, req.MonthlyBudget, req.SavingsGoal, time.Now())
	} else {
		prof, err = s.engine.UpdateSettings(r.Context(), uid, req.MonthlyBudget, req.SavingsGoal)
	}
	if err != nil {
		s.respondDomainError(w, r, err, "configure budget")
		return
	}

	s.sessionCache.Delete(uid)
	respondJSON(w, http.StatusOK, prof)
}

type expenseRequest struct {
	Amount     float64              `json:"amount"`
	Name       string               `json:"name"`
	Note       string               `json:"note"`
	Category   string               `json:"category"`
	Date       *time.Time           `json:"date,omitempty"`
	Recurrence *core.RecurrenceRule `json:"recurrence,omitempty"`
}

// handleExpenses serves POST /expenses (record a charge) and GET /expenses
// (the current or a requested month's ledger slice).
func (s *Server) handleExpenses(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		respondError(w, http.StatusBadRequest, "missing "+userIDHeader+" header")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.listExpenses(w, r, uid)
	case http.MethodPost:
		s.createExpense(w, r, uid)
	default:
		w.Header().Set("Allow", "GET, POST")
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) listExpenses(w http.ResponseWriter, r *http.Request, uid string) {
	now := time.Now()
	year, month := now.Year(), now.Month()
	if v := strings.TrimSpace(r.URL.Query().Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil {
			year = y
		}
	}
	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		if m, err := strconv.Atoi(v); err == nil && m >= 1 && m <= 12 {
			month = time.Month(m)
		}
	}

	session, found := s.sessionCache.Get(uid)
	if !found {
		loaded, err := s.engine.LoadSession(r.Context(), uid, now)
		if err != nil {
			s.respondDomainError(w, r, err, "load session")
			return
		}
		s.sessionCache.Set(uid, *loaded)
		session = *loaded
	}

	expenses := s.engine.ExpensesInPeriod(session.Profile, year, month)
	if expenses == nil {
		expenses = []core.Expense{}
	}
	respondJSON(w, http.StatusOK, expenses)
}

func (s *Server) createExpense(w http.ResponseWriter, r *http.Request, uid string) {
	var req expenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	in := budget.ExpenseInput{
		Amount:     req.Amount,
		Name:       req.Name,
		Note:       req.Note,
		Category:   req.Category,
		Recurrence: req.Recurrence,
	}
	if req.Date != nil {
		in.Date = *req.Date
	}

	exp, err := s.engine.AddExpense(r.Context(), uid, in, time.Now())
	if err != nil {
		s.respondDomainError(w, r, err, "add expense")
		return
	}

	s.sessionCache.Delete(uid)
	respondJSON(w, http.StatusCreated, exp)
}

type projectionResponse struct {
	Forecast   *budget.Forecast `json:"forecast"`
	Trajectory []float64        `json:"trajectory"`
}

// handleProjection serves GET /projection.
func (s *Server) handleProjection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	uid := userID(r)
	if uid == "" {
		respondError(w, http.StatusBadRequest, "missing "+userIDHeader+" header")
		return
	}

	session, found := s.sessionCache.Get(uid)
	if !found {
		loaded, err := s.engine.LoadSession(r.Context(), uid, time.Now())
		if err != nil {
			s.respondDomainError(w, r, err, "load session")
			return
		}
		s.sessionCache.Set(uid, *loaded)
		session = *loaded
	}

	if session.NeedsSetup {
		respondError(w, http.StatusConflict, budget.ErrNotConfigured.Error())
		return
	}

	respondJSON(w, http.StatusOK, projectionResponse{
		Forecast:   session.Forecast,
		Trajectory: session.Trajectory,
	})
}
