package api

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"reddot-watch/feedsreader/internal/controller"
	"reddot-watch/feedsreader/internal/prefs"
	"reddot-watch/feedsreader/internal/server/storage"
	"reddot-watch/feedsreader/internal/theme"
	"reddot-watch/feedsreader/internal/ui"
)

const defaultWindow = "default"

// Controller is the part of the application controller exposed over HTTP.
type Controller interface {
	Status() controller.Status
	Button() ui.ButtonState
	Panel() *ui.Panel
	ShowPanel(window string)
	HidePanel(window string)
	Refresh(ctx context.Context) error
}

// Preferences reads and changes the user preferences.
type Preferences interface {
	Get() prefs.Preferences
	SetContentStyle(style string) error
}

// ButtonResponse is the body of GET /v1/button.
type ButtonResponse struct {
	ui.ButtonState
	Title  string            `json:"title"`
	Status controller.Status `json:"status"`
}

// PreferencesResponse is the body of the preferences endpoints. Palette is
// false when the content style is a raw color rather than a palette name.
type PreferencesResponse struct {
	prefs.Preferences
	Palette bool `json:"palette"`
}

func preferencesResponse(p prefs.Preferences) PreferencesResponse {
	return PreferencesResponse{Preferences: p, Palette: theme.Known(p.ContentStyle)}
}

// UIHandler serves the button, the panel and the preferences.
type UIHandler struct {
	ctrl  Controller
	prefs Preferences
	docs  storage.DocumentRepository
}

// NewUIHandler creates a new handler instance. docs may be nil.
func NewUIHandler(ctrl Controller, p Preferences, docs storage.DocumentRepository) *UIHandler {
	return &UIHandler{ctrl: ctrl, prefs: p, docs: docs}
}

// GetButton returns the button state.
func (h *UIHandler) GetButton(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, ButtonResponse{
		ButtonState: h.ctrl.Button(),
		Title:       ui.Title,
		Status:      h.ctrl.Status(),
	})
}

// ShowPanel toggles the button on in ?window= and shows the panel.
func (h *UIHandler) ShowPanel(w http.ResponseWriter, r *http.Request) {
	window := windowParam(r)
	h.ctrl.ShowPanel(window)
	hlog.FromRequest(r).Debug().Str("window", window).Msg("Panel shown")
	h.GetButton(w, r)
}

// HidePanel toggles the button off in ?window= and hides the panel.
func (h *UIHandler) HidePanel(w http.ResponseWriter, r *http.Request) {
	window := windowParam(r)
	h.ctrl.HidePanel(window)
	hlog.FromRequest(r).Debug().Str("window", window).Msg("Panel hidden")
	h.GetButton(w, r)
}

func windowParam(r *http.Request) string {
	if window := r.URL.Query().Get("window"); window != "" {
		return window
	}
	return defaultWindow
}

var panelTmpl = template.Must(template.New("panel").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body class="{{.Class}}">
<h1>{{.Title}}</h1>
<p>{{.Label}}</p>
{{- if .Documents}}
<ul>
{{- range .Documents}}
<li><a href="/v1/documents/{{.ID}}">{{.Title}}</a> ({{len .Entries}})</li>
{{- end}}
</ul>
{{- end}}
</body></html>
`))

// Panel serves the panel document with the current style as body class.
func (h *UIHandler) Panel(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{
		"Title": ui.Title,
		"Class": h.ctrl.Panel().BodyClass(),
		"Label": h.ctrl.Button().Label,
	}
	if h.docs != nil {
		data["Documents"] = h.docs.Documents()
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := panelTmpl.Execute(w, data); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Error rendering panel")
	}
}

// Refresh starts a new batch of feed fetches.
func (h *UIHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)

	err := h.ctrl.Refresh(r.Context())
	switch {
	case errors.Is(err, controller.ErrBusy):
		log.Info().Msg("Refresh rejected, a batch is running")
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case errors.Is(err, controller.ErrNotReady):
		log.Warn().Err(err).Msg("Refresh rejected")
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	case err != nil:
		log.Error().Err(err).Msg("Refresh failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, r, http.StatusAccepted, h.ctrl.Status())
}

// GetPreferences returns the current preferences.
func (h *UIHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, preferencesResponse(h.prefs.Get()))
}

// PutPreferences changes the content style.
func (h *UIHandler) PutPreferences(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)

	var body prefs.Preferences
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&body); err != nil {
		log.Warn().Err(err).Msg("Invalid preferences body")
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	if body.ContentStyle == "" {
		http.Error(w, "Missing 'content_style'", http.StatusBadRequest)
		return
	}

	if err := h.prefs.SetContentStyle(body.ContentStyle); err != nil {
		log.Error().Err(err).Msg("Failed to save preferences")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	response := preferencesResponse(h.prefs.Get())
	if !response.Palette {
		log.Info().Str("content_style", response.ContentStyle).Msg("Content style is not a palette name, using it as a raw color")
	}
	writeJSON(w, r, http.StatusOK, response)
}
