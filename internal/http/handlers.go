package http

import (
	"context"
	"net/http"

	"txcat/internal/core"
	"txcat/internal/log"
)

type statusBody struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type categoriesBody struct {
	Categories []string `json:"categories"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		NotFoundError("not found").Write(w)
		return
	}
	if rb := RequireMethod(r, http.MethodGet); rb != nil {
		rb.Write(w)
		return
	}
	NewJSONResponse().Body(statusBody{Status: "ok"}).Write(w)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	if rb := RequireMethod(r, http.MethodGet); rb != nil {
		rb.Write(w)
		return
	}
	NewJSONResponse().Body(statusBody{Status: "healthy"}).Write(w)
}

// handleReady reports 503 while the database is unreachable.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if rb := RequireMethod(r, http.MethodGet); rb != nil {
		rb.Write(w)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.readyWait)
	defer cancel()

	if err := s.svc.Ping(ctx); err != nil {
		s.logger.WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
		NewJSONResponse().
			Status(http.StatusServiceUnavailable).
			Body(statusBody{Status: "unavailable", Error: "database unreachable"}).
			Write(w)
		return
	}
	NewJSONResponse().Body(statusBody{Status: "ready"}).Write(w)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	if rb := RequireMethod(r, http.MethodGet); rb != nil {
		rb.Write(w)
		return
	}
	NewJSONResponse().Body(categoriesBody{Categories: s.svc.Categories()}).Write(w)
}

// handleTransactions serves GET (list) and POST (create) on the collection.
func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/transactions" && r.URL.Path != "/transactions/" {
		NotFoundError("not found").Write(w)
		return
	}
	if rb := RequireMethod(r, http.MethodGet, http.MethodPost); rb != nil {
		rb.Write(w)
		return
	}
	if r.Method == http.MethodPost {
		s.handleCreateTransaction(w, r)
		return
	}
	s.handleListTransactions(w, r)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	in, err := DecodeCreateRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	tx, err := s.svc.Create(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	NewJSONResponse().Status(http.StatusCreated).Body(tx).Write(w)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := ParseFilterParams(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	txs, err := s.svc.List(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	NewJSONResponse().Body(txs).Write(w)
}

func (s *Server) handleTransactionByID(w http.ResponseWriter, r *http.Request) {
	if rb := RequireMethod(r, http.MethodGet); rb != nil {
		rb.Write(w)
		return
	}
	id, err := ParseIDParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	tx, err := s.svc.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(tx).Write(w)
}

// handleSummary aggregates the month on every request, so writes from other
// processes sharing the database are visible immediately.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if rb := RequireMethod(r, http.MethodGet); rb != nil {
		rb.Write(w)
		return
	}
	month, err := ParseMonthParam(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	summary, err := s.svc.Summary(r.Context(), month)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(summary).Write(w)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	rb := errorResponse(err)
	if isServerError(rb) {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldError, err)
	}
	rb.Write(w)
}
