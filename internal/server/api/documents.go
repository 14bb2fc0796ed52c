package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"reddot-watch/feedsreader/internal/server/pagination"
	"reddot-watch/feedsreader/internal/server/storage"
)

const defaultLimit = 50
const maxLimit = 500

// DocumentSummary describes a rendered document without its entries.
type DocumentSummary struct {
	ID        string    `json:"id"`
	SourceURL string    `json:"source_url"`
	Title     string    `json:"title"`
	Entries   int       `json:"entries"`
	ParsedAt  time.Time `json:"parsed_at"`
}

// DocumentsResponse is the body of the documents listing.
type DocumentsResponse struct {
	Documents  []DocumentSummary `json:"documents"`
	NextCursor *string           `json:"next_cursor,omitempty"`
}

// DocumentsHandler serves the rendered feed listings.
type DocumentsHandler struct {
	docs storage.DocumentRepository
}

// NewDocumentsHandler creates a new handler instance.
func NewDocumentsHandler(docs storage.DocumentRepository) *DocumentsHandler {
	return &DocumentsHandler{docs: docs}
}

// ListDocuments pages through the documents in the order they were shown.
func (h *DocumentsHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)
	query := r.URL.Query()

	limit := defaultLimit
	if limitStr := query.Get("limit"); limitStr != "" {
		parsedLimit, err := strconv.Atoi(limitStr)
		if err != nil || parsedLimit <= 0 || parsedLimit > maxLimit {
			log.Warn().Err(err).Str("limit", limitStr).Msg("Invalid 'limit' parameter value")
			http.Error(w, fmt.Sprintf("Invalid 'limit' parameter: must be between 1 and %d", maxLimit), http.StatusBadRequest)
			return
		}
		limit = parsedLimit
	}

	docs := h.docs.Documents()

	start := 0
	if cursorStr := query.Get("cursor"); cursorStr != "" {
		ts, id, err := pagination.DecodeCursor(cursorStr)
		if err != nil {
			log.Warn().Err(err).Str("cursor", cursorStr).Msg("Invalid 'cursor' parameter")
			http.Error(w, "Invalid 'cursor' parameter", http.StatusBadRequest)
			return
		}

		start = -1
		for i, doc := range docs {
			if doc.ID == id && doc.ParsedAt.Equal(ts) {
				start = i + 1
				break
			}
		}
		if start < 0 {
			log.Warn().Str("cursor", cursorStr).Msg("Cursor points to an unknown document")
			http.Error(w, "Invalid 'cursor' parameter", http.StatusBadRequest)
			return
		}
	}

	end := min(start+limit, len(docs))
	response := DocumentsResponse{Documents: make([]DocumentSummary, 0, end-start)}
	for _, doc := range docs[start:end] {
		response.Documents = append(response.Documents, DocumentSummary{
			ID:        doc.ID,
			SourceURL: doc.SourceURL,
			Title:     doc.Title,
			Entries:   len(doc.Entries),
			ParsedAt:  doc.ParsedAt,
		})
	}
	if end < len(docs) && end > start {
		last := docs[end-1]
		cursor := pagination.EncodeCursor(last.ParsedAt, last.ID)
		response.NextCursor = &cursor
	}

	writeJSON(w, r, http.StatusOK, response)
}

// GetDocument serves the rendered listing of one document.
func (h *DocumentsHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	page, ok := h.docs.Page(id)
	if !ok {
		hlog.FromRequest(r).Debug().Str("id", id).Msg("Document not found")
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(page.HTML); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Error writing document")
	}
}
