// Package coordinator is the in-memory authority for the active search
// filter. It reconciles three inputs: the persisted store at mount,
// live user edits, and an externally changing tag vocabulary, and emits
// canonical filters to a dispatch callback.
package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/vecindario/discovery/internal/filterstore"
	"github.com/vecindario/discovery/internal/logging"
	"github.com/vecindario/discovery/internal/models"
)

// DefaultDebounce is the quiet period after the last edit before a
// dispatch fires in debounced mode.
const DefaultDebounce = 300 * time.Millisecond

// Mode selects how edits are committed.
type Mode string

const (
	// ModeDebounced dispatches automatically once edits go quiet, the
	// way the live search bar behaves.
	ModeDebounced Mode = "debounced"

	// ModeManual accumulates edits in a draft until an explicit Apply,
	// the way the filter modal behaves. Cancel discards the draft.
	ModeManual Mode = "manual"
)

// DispatchFunc receives the canonical filter whenever it is committed.
type DispatchFunc func(models.FilterState)

// Coordinator tracks one filter session.
type Coordinator struct {
	store    filterstore.Store
	dispatch DispatchFunc
	mode     Mode
	debounce time.Duration
	logger   *logging.Logger

	mu         sync.Mutex
	state      models.FilterState
	draft      *models.FilterState
	vocabulary []string
	timer      *time.Timer
	mounted    bool
	closed     bool
}

// Options tune a coordinator; zero values fall back to defaults.
type Options struct {
	Mode     Mode
	Debounce time.Duration
}

// New creates a coordinator. The dispatch callback runs off the caller's
// goroutine when the debounce timer fires, and synchronously from Apply.
func New(store filterstore.Store, dispatch DispatchFunc, opts Options, logger *logging.Logger) *Coordinator {
	mode := opts.Mode
	if mode == "" {
		mode = ModeDebounced
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Coordinator{
		store:    store,
		dispatch: dispatch,
		mode:     mode,
		debounce: debounce,
		logger:   logger,
		state:    models.DefaultFilterState(),
	}
}

// Mount restores the persisted filter. Until Mount is called the
// coordinator holds defaults; mounting twice is a no-op.
func (c *Coordinator) Mount(ctx context.Context) models.FilterState {
	loaded := c.store.Load(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mounted {
		return c.state.Clone()
	}
	c.mounted = true
	c.state = loaded.Normalize()
	if c.vocabulary != nil {
		c.state = c.state.IntersectTags(c.vocabulary)
	}
	return c.state.Clone()
}

// State returns the committed canonical filter. Draft edits in manual
// mode are not visible here until Apply.
func (c *Coordinator) State() models.FilterState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// Draft returns the filter as the user currently sees it: the draft in
// manual mode when one exists, otherwise the committed state.
func (c *Coordinator) Draft() models.FilterState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.draft != nil {
		return c.draft.Clone()
	}
	return c.state.Clone()
}

// SetTitle edits the free-text title filter.
func (c *Coordinator) SetTitle(title string) {
	c.edit(func(f *models.FilterState) {
		f.SearchTitle = title
	})
}

// SetTags replaces the selected tags, intersected with the vocabulary.
func (c *Coordinator) SetTags(tags []string) {
	c.edit(func(f *models.FilterState) {
		f.SelectedTags = append([]string(nil), tags...)
	})
}

// SetLocation sets the search center.
func (c *Coordinator) SetLocation(loc models.LatLng) {
	c.edit(func(f *models.FilterState) {
		f.Location = &loc
	})
}

// ClearLocation removes the search center, e.g. after a location
// permission denial. Search degrades to distance-less filtering; this
// is not an error state.
func (c *Coordinator) ClearLocation() {
	c.edit(func(f *models.FilterState) {
		f.Location = nil
	})
}

// SetRadius edits the search radius in meters; negative values clamp
// to zero.
func (c *Coordinator) SetRadius(meters int) {
	c.edit(func(f *models.FilterState) {
		f.RadiusMeters = meters
	})
}

func (c *Coordinator) edit(apply func(*models.FilterState)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	if c.mode == ModeManual {
		if c.draft == nil {
			draft := c.state.Clone()
			c.draft = &draft
		}
		apply(c.draft)
		*c.draft = c.draft.Normalize()
		if c.vocabulary != nil {
			*c.draft = c.draft.IntersectTags(c.vocabulary)
		}
		return
	}

	apply(&c.state)
	c.state = c.state.Normalize()
	if c.vocabulary != nil {
		c.state = c.state.IntersectTags(c.vocabulary)
	}
	c.restartTimerLocked()
}

// SetVocabulary replaces the available-tags vocabulary. Selected tags
// referencing removed categories are silently dropped from the state and
// any open draft. Only debounced mode treats this as an edit worth
// dispatching.
func (c *Coordinator) SetVocabulary(tags []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	c.vocabulary = append([]string(nil), tags...)

	before := len(c.state.SelectedTags)
	c.state = c.state.IntersectTags(c.vocabulary)
	if c.draft != nil {
		*c.draft = c.draft.IntersectTags(c.vocabulary)
	}

	if dropped := before - len(c.state.SelectedTags); dropped > 0 {
		c.logger.Debug("Dropped stale selected tags", logging.WithField("count", dropped))
	}

	if c.mode == ModeDebounced {
		c.restartTimerLocked()
	}
}

// restartTimerLocked starts or restarts the debounce timer. Debounce,
// not throttle: only the last edit in a burst fires.
func (c *Coordinator) restartTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.debounce, c.fire)
}

// fire commits the current state after the quiet period.
func (c *Coordinator) fire() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	state := c.state.Clone()
	c.mu.Unlock()

	c.commit(state)
}

// Apply commits immediately. In manual mode it promotes the draft; in
// debounced mode it flushes any pending debounce with the live state.
func (c *Coordinator) Apply() models.FilterState {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return models.FilterState{}
	}
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.draft != nil {
		c.state = c.draft.Clone()
		c.draft = nil
	}
	state := c.state.Clone()
	c.mu.Unlock()

	c.commit(state)
	return state
}

// Cancel discards the manual-mode draft, reverting to the last
// committed state. It is a no-op in debounced mode.
func (c *Coordinator) Cancel() models.FilterState {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = nil
	return c.state.Clone()
}

func (c *Coordinator) commit(state models.FilterState) {
	// Persistence is best-effort; the store logs its own failures.
	c.store.Save(context.Background(), state)
	if c.dispatch != nil {
		c.dispatch(state)
	}
}

// Close stops the debounce timer. No dispatches fire after Close.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
