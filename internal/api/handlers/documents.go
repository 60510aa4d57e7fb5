package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/cloo-solutions/financelm/internal/api"
	"github.com/cloo-solutions/financelm/internal/domain"
	"github.com/cloo-solutions/financelm/internal/pagination"
	"github.com/cloo-solutions/financelm/internal/service"
	"github.com/go-chi/chi/v5"
)

type IngestionService interface {
	Ingest(ctx context.Context, docs []domain.IngestDocumentInput) (*domain.IngestionSummary, error)
}

type DocumentService interface {
	Get(ctx context.Context, id int64) (*domain.Document, error)
	List(ctx context.Context, input service.ListDocumentsInput) (*pagination.PageResult[*domain.Document], error)
}

type DocumentHandler struct {
	ingest IngestionService
	docs   DocumentService
}

func NewDocumentHandler(ingest IngestionService, docs DocumentService) *DocumentHandler {
	return &DocumentHandler{ingest: ingest, docs: docs}
}

type IngestRequest struct {
	Documents []domain.IngestDocumentInput `json:"documents"`
}

type DocumentResponse struct {
	ID          int64   `json:"id"`
	Source      string  `json:"source"`
	Ticker      *string `json:"ticker"`
	Title       string  `json:"title"`
	Content     string  `json:"content,omitempty"`
	PublishedAt *string `json:"published_at"`
	Origin      string  `json:"origin,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

type DocumentListResponse struct {
	Documents []*DocumentResponse `json:"documents"`
	Cursor    string              `json:"cursor,omitempty"`
	HasMore   bool                `json:"has_more"`
}

func documentToResponse(d *domain.Document, withContent bool) *DocumentResponse {
	resp := &DocumentResponse{
		ID:        d.ID,
		Source:    d.Source,
		Ticker:    d.Ticker,
		Title:     d.Title,
		Origin:    d.Origin,
		CreatedAt: d.CreatedAt.UTC().Format(time.RFC3339),
	}
	if withContent {
		resp.Content = d.Content
	}
	if d.PublishedAt != nil {
		published := d.PublishedAt.UTC().Format(time.RFC3339)
		resp.PublishedAt = &published
	}
	return resp
}

func (h *DocumentHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		api.ErrorWithCode(w, http.StatusBadRequest, domain.ErrCodeValidation, "invalid request body")
		return
	}

	summary, err := h.ingest.Ingest(r.Context(), req.Documents)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, summary)
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		api.ErrorWithCode(w, http.StatusBadRequest, domain.ErrCodeValidation, "invalid document id")
		return
	}

	doc, err := h.docs.Get(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, documentToResponse(doc, true))
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	input := service.ListDocumentsInput{
		Ticker: q.Get("ticker"),
		Source: q.Get("source"),
		Cursor: q.Get("cursor"),
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			api.ErrorWithCode(w, http.StatusBadRequest, domain.ErrCodeValidation, "limit must be a positive integer")
			return
		}
		input.Limit = limit
	}

	page, err := h.docs.List(r.Context(), input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	docs := make([]*DocumentResponse, len(page.Items))
	for i, d := range page.Items {
		docs[i] = documentToResponse(d, false)
	}
	api.Success(w, http.StatusOK, DocumentListResponse{
		Documents: docs,
		Cursor:    page.Cursor,
		HasMore:   page.HasMore,
	})
}
