package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cloo-solutions/financelm/internal/api"
	"github.com/cloo-solutions/financelm/internal/domain"
)

type QAService interface {
	Answer(ctx context.Context, q domain.QAQuery) (*domain.QAResult, error)
}

type QAHandler struct {
	svc QAService
}

func NewQAHandler(svc QAService) *QAHandler {
	return &QAHandler{svc: svc}
}

// QARequest is the body of POST /qa. Dates accept RFC 3339 or YYYY-MM-DD.
// A nil TopK selects the service default.
type QARequest struct {
	Question string `json:"question"`
	TopK     *int   `json:"top_k"`
	Ticker   string `json:"ticker"`
	Source   string `json:"source"`
	DateFrom string `json:"date_from"`
	DateTo   string `json:"date_to"`
}

// ToQuery converts the request into a service query.
func (req QARequest) ToQuery() (domain.QAQuery, error) {
	topK := 0
	if req.TopK != nil {
		if *req.TopK < 1 {
			return domain.QAQuery{}, domain.Wrap(domain.ErrInvalidTopK, "top_k must be at least 1")
		}
		topK = *req.TopK
	}
	from, err := ParseDate("date_from", req.DateFrom)
	if err != nil {
		return domain.QAQuery{}, err
	}
	to, err := ParseDate("date_to", req.DateTo)
	if err != nil {
		return domain.QAQuery{}, err
	}
	return domain.QAQuery{
		Question: req.Question,
		TopK:     topK,
		Filters: domain.Filters{
			Ticker:   strings.TrimSpace(req.Ticker),
			Source:   strings.TrimSpace(req.Source),
			DateFrom: from,
			DateTo:   to,
		},
	}, nil
}

func (h *QAHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req QARequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.ErrorWithCode(w, http.StatusBadRequest, domain.ErrCodeValidation, "invalid request body")
		return
	}

	query, err := req.ToQuery()
	if err != nil {
		api.HandleError(w, err)
		return
	}

	result, err := h.svc.Answer(r.Context(), query)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, result)
}

// ParseDate reads an optional RFC 3339 timestamp or calendar date.
func ParseDate(field, value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.DateOnly} {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, domain.NewDomainError(domain.ErrCodeValidation, fmt.Sprintf("%s must be RFC 3339 or YYYY-MM-DD", field))
}
