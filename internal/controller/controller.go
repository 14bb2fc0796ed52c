// Package controller runs the startup workflow of the reader and owns the
// button and panel state.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"reddot-watch/feedsreader/internal/metrics"
	"reddot-watch/feedsreader/internal/models"
	"reddot-watch/feedsreader/internal/process"
	"reddot-watch/feedsreader/internal/theme"
	"reddot-watch/feedsreader/internal/ui"
)

// Labels shown on the button.
const (
	LabelSchemaError      = "ERROR: Database schema not created!"
	LabelUnavailableError = "ERROR: Database is not available!"
	LabelFetching         = "Fetching unread items."
	LabelNoFeeds          = "There are no feeds."
)

// State is a step of the controller workflow.
type State int

const (
	StateInit State = iota
	StateSchemaCreating
	StateFetchingFeeds
	StateReady
	StateError
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateSchemaCreating:
		return "schema_creating"
	case StateFetchingFeeds:
		return "fetching_feeds"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText encodes the state by name, so JSON bodies carry "ready"
// rather than a number.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

var (
	// ErrBusy is returned by Refresh while a batch is still running.
	ErrBusy = errors.New("feeds are already being fetched")
	// ErrNotReady is returned by Refresh before the workflow reached Ready.
	ErrNotReady = errors.New("controller is not ready")
)

// Storage is the part of the database the controller depends on.
type Storage interface {
	StorageVersion(ctx context.Context) (int, error)
	CreateSchema(ctx context.Context) error
	Feeds(ctx context.Context) ([]models.Feed, error)
}

// Runner processes a batch of feeds.
type Runner interface {
	Run(ctx context.Context, feeds []models.Feed, onDocument process.DocumentHandler) process.Report
}

// Status is a snapshot of the workflow.
type Status struct {
	State   State  `json:"state"`
	Message string `json:"message,omitempty"`
	Running bool   `json:"running"`
	Batches int    `json:"batches"`
}

// Controller drives the workflow: storage version check, schema creation,
// feed loading and batch dispatch. It is safe for concurrent use.
type Controller struct {
	storage Storage
	runner  Runner
	metrics *metrics.Metrics
	button  *ui.Button
	panel   *ui.Panel

	unreadMu sync.Mutex

	mu      sync.Mutex
	state   State
	message string
	style   string
	baseCtx context.Context
	running bool
	batches int
	done    chan struct{}
	report  process.Report
}

// New creates a controller in the Init state. style is the initial content
// style; m may be nil.
func New(storage Storage, runner Runner, style string, m *metrics.Metrics) *Controller {
	if style == "" {
		style = theme.DefaultStyle
	}
	return &Controller{
		storage: storage,
		runner:  runner,
		metrics: m,
		button:  ui.NewButton(theme.Color(style)),
		panel:   ui.NewPanel(),
		style:   style,
		state:   StateInit,
	}
}

// Start runs the startup workflow. Batches dispatched by Start and by later
// refreshes run under ctx, so cancelling it stops them. Start does not wait
// for the batch: the controller is Ready as soon as it has been dispatched.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	c.baseCtx = ctx
	c.mu.Unlock()

	c.setState(StateInit, "")

	version, err := c.storage.StorageVersion(ctx)
	if err != nil {
		c.fail(LabelUnavailableError)
		return err
	}

	if version >= 1 {
		log.Info().Int("version", version).Msg("Database schema present")
		c.setState(StateReady, "")
		return nil
	}

	c.setState(StateSchemaCreating, "")
	if err := c.storage.CreateSchema(ctx); err != nil {
		c.fail(LabelSchemaError)
		return err
	}

	c.fetchFeeds(ctx)
	return nil
}

// Refresh loads the feeds again and dispatches a new batch.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	switch {
	case c.running || c.state == StateFetchingFeeds:
		c.mu.Unlock()
		return ErrBusy
	case c.state != StateReady:
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: state is %s", ErrNotReady, state)
	}
	c.state = StateFetchingFeeds
	c.mu.Unlock()

	c.fetchFeeds(ctx)
	return nil
}

func (c *Controller) fetchFeeds(ctx context.Context) {
	c.setState(StateFetchingFeeds, "")
	c.button.Set(ui.BadgeLoading, LabelFetching)

	feeds, err := c.storage.Feeds(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load feeds")
		feeds = nil
	}

	// The button stays disabled until there is something to read.
	if len(feeds) == 0 {
		c.unreadMu.Lock()
		c.button.Set("0", LabelNoFeeds)
		c.metrics.SetUnread(0)
		c.unreadMu.Unlock()
		c.setState(StateReady, "")
		return
	}

	c.dispatch(feeds)
	c.button.SetDisabled(false)
	c.setState(StateReady, "")
}

func (c *Controller) dispatch(feeds []models.Feed) {
	done := make(chan struct{})

	c.mu.Lock()
	ctx := c.baseCtx
	if ctx == nil {
		ctx = context.Background()
	}
	c.running = true
	c.batches++
	c.done = done
	c.mu.Unlock()

	c.metrics.IncRefresh()
	log.Info().Int("feeds", len(feeds)).Msg("Dispatching feeds batch")

	go func() {
		defer close(done)

		report := c.runner.Run(ctx, feeds, c.onDocument)

		// A batch without any parsed document still leaves a count.
		c.addUnread(0)

		c.mu.Lock()
		c.report = report
		c.running = false
		c.mu.Unlock()

		if err := report.Err(); err != nil {
			log.Warn().Int("failures", len(report.Failures)).Msg("Feeds batch finished with failures")
		}
	}()
}

func (c *Controller) onDocument(feed models.Feed, doc *models.Document) {
	count := c.addUnread(len(doc.Entries))

	log.Debug().
		Int64("feed_id", feed.ID).
		Int("entries", len(doc.Entries)).
		Int("unread", count).
		Msg("Unread count updated")
}

// addUnread updates the badge and the unread gauge together.
func (c *Controller) addUnread(n int) int {
	c.unreadMu.Lock()
	defer c.unreadMu.Unlock()
	count := c.button.AddUnread(n)
	c.metrics.SetUnread(count)
	return count
}

// Wait blocks until the last dispatched batch finished and returns its
// report. It returns an empty report when nothing was dispatched.
func (c *Controller) Wait() process.Report {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()

	if done == nil {
		return process.Report{}
	}
	<-done

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.report
}

func (c *Controller) setState(s State, message string) {
	c.mu.Lock()
	c.state = s
	c.message = message
	c.mu.Unlock()

	log.Debug().Stringer("state", s).Msg("Controller state changed")
}

func (c *Controller) fail(message string) {
	c.button.Set(ui.BadgeError, message)
	c.button.SetDisabled(false)
	c.setState(StateError, message)
	log.Error().Str("message", message).Msg("Controller stopped")
}

// Status returns the current workflow state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		State:   c.state,
		Message: c.message,
		Running: c.running,
		Batches: c.batches,
	}
}

// State returns the current workflow state.
func (c *Controller) State() State {
	return c.Status().State
}

// Button returns the current button state.
func (c *Controller) Button() ui.ButtonState {
	return c.button.State()
}

// Panel returns the panel attached to the button.
func (c *Controller) Panel() *ui.Panel {
	return c.panel
}

// ContentStyle returns the style last relayed to the button and panel.
func (c *Controller) ContentStyle() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.style
}

// SetContentStyle relays a preference change: the badge takes the color of
// style and the panel receives a style event.
func (c *Controller) SetContentStyle(style string) {
	c.mu.Lock()
	c.style = style
	c.mu.Unlock()

	c.button.SetBadgeColor(theme.Color(style))
	c.panel.Emit(ui.Event{Name: ui.EventStyle, Style: style})
}

// ShowPanel checks the button in window and shows the panel with the
// current style.
func (c *Controller) ShowPanel(window string) {
	c.button.SetChecked(window, true)
	c.panel.Emit(ui.Event{Name: ui.EventShow, Style: c.ContentStyle()})
}

// HidePanel unchecks the button in window and hides the panel.
func (c *Controller) HidePanel(window string) {
	c.button.SetChecked(window, false)
	c.panel.Emit(ui.Event{Name: ui.EventHide})
}
