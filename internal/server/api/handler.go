package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/hlog"

	importfeeds "reddot-watch/feedsreader/internal/import"
	"reddot-watch/feedsreader/internal/server/storage"
)

// CatalogueHandler serves the categories and feeds of the catalogue.
type CatalogueHandler struct {
	repo storage.CatalogueRepository
}

// NewCatalogueHandler creates a new handler instance.
func NewCatalogueHandler(repo storage.CatalogueRepository) *CatalogueHandler {
	return &CatalogueHandler{repo: repo}
}

// GetCategories lists every category.
func (h *CatalogueHandler) GetCategories(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)

	categories, err := h.repo.Categories(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Error fetching categories from repository")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{"categories": categories})
}

// GetFeeds lists the feeds, optionally restricted to ?category=ID.
func (h *CatalogueHandler) GetFeeds(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)

	var categoryID *int64
	if raw := r.URL.Query().Get("category"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			log.Warn().Err(err).Str("category", raw).Msg("Invalid 'category' parameter value")
			http.Error(w, "Invalid 'category' parameter: must be an integer", http.StatusBadRequest)
			return
		}
		categoryID = &id
	}

	feeds, err := h.repo.Feeds(r.Context(), categoryID)
	if err != nil {
		log.Error().Err(err).Msg("Error fetching feeds from repository")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{"feeds": feeds})
}

// ExportFeeds writes the whole catalogue as an attachment, in CSV or OPML
// (?format=opml) form. Both can be imported back.
func (h *CatalogueHandler) ExportFeeds(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)

	format := importfeeds.Format(r.URL.Query().Get("format"))
	if format == "" {
		format = importfeeds.FormatCSV
	}
	if format != importfeeds.FormatCSV && format != importfeeds.FormatOPML {
		http.Error(w, "Invalid 'format' parameter: use csv or opml", http.StatusBadRequest)
		return
	}

	categories, err := h.repo.Categories(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to query categories")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	feeds, err := h.repo.Feeds(r.Context(), nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to query feeds")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if format == importfeeds.FormatOPML {
		w.Header().Set("Content-Type", "text/x-opml; charset=utf-8")
		w.Header().Set("Content-Disposition", "attachment; filename=feeds.opml")
		err = importfeeds.WriteOPML(w, "Feeds Reader", categories, feeds)
	} else {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", "attachment; filename=feeds.csv")
		err = importfeeds.WriteCSV(w, categories, feeds)
	}
	if err != nil {
		log.Error().Err(err).Msg("Error writing feeds export")
		return
	}

	log.Info().Int("feed_count", len(feeds)).Str("format", string(format)).Msg("Exported feeds")
}

// writeJSON marshals v before writing anything so a marshaling error can
// still be answered with a 500.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	log := hlog.FromRequest(r)

	jsonBytes, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("Error marshaling JSON response")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(jsonBytes); err != nil {
		log.Error().Err(err).Msg("Error writing JSON response body to client")
		return
	}
	log.Debug().Int("bytes_written", len(jsonBytes)).Msg("Response completed")
}
