package services

import (
	"sync"
	"time"

	"github.com/zatekoja/provider-browser/internal/domain/entities"
)

// ModeSwitch describes the outcome of a view mode change request
type ModeSwitch struct {
	From entities.ViewMode
	To   entities.ViewMode
	// Changed is false for no-op and debounced requests
	Changed   bool
	Debounced bool
	// NeedsFetch is set when the target mode cannot reuse the current result
	// set: entering grid needs a server page, leaving it needs the full set.
	NeedsFetch bool
}

// ViewModeCoordinator owns the active presentation mode
type ViewModeCoordinator struct {
	debounce time.Duration
	now      func() time.Time

	mu         sync.Mutex
	mode       entities.ViewMode
	lastSwitch time.Time
}

// NewViewModeCoordinator starts in initial; switches closer together than
// debounce are dropped.
func NewViewModeCoordinator(initial entities.ViewMode, debounce time.Duration) *ViewModeCoordinator {
	if _, ok := entities.ParseViewMode(string(initial)); !ok {
		initial = entities.ViewModeSwipe
	}
	return &ViewModeCoordinator{
		debounce: debounce,
		now:      time.Now,
		mode:     initial,
	}
}

// Mode returns the active mode
func (c *ViewModeCoordinator) Mode() entities.ViewMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Switch moves to mode to unless it is already active or the previous switch
// happened within the debounce window.
func (c *ViewModeCoordinator) Switch(to entities.ViewMode) ModeSwitch {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := ModeSwitch{From: c.mode, To: to}
	if to == c.mode {
		return result
	}

	now := c.now()
	if c.debounce > 0 && !c.lastSwitch.IsZero() && now.Sub(c.lastSwitch) < c.debounce {
		result.Debounced = true
		return result
	}

	c.mode = to
	c.lastSwitch = now
	result.Changed = true
	result.NeedsFetch = to == entities.ViewModeGrid || result.From == entities.ViewModeGrid
	return result
}
