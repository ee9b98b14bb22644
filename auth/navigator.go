package auth

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Entry points the lifecycle navigates to
const (
	RootPath  = "/"
	LoginPath = "/login"
)

// Navigator moves the user between entry points.
type Navigator interface {
	// Navigate performs a full navigation, e.g. to the login page.
	Navigate(path string)
	// Replace swaps the visible URL without reloading.
	Replace(path string)
}

// HistoryNavigator records navigation in memory and logs it.
type HistoryNavigator struct {
	mu      sync.Mutex
	current string
	history []string
}

var _ Navigator = (*HistoryNavigator)(nil)

func NewHistoryNavigator(start string) *HistoryNavigator {
	return &HistoryNavigator{current: start}
}

func (n *HistoryNavigator) Navigate(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	log.Info().Str("from", n.current).Str("to", path).Msg("navigate")
	n.history = append(n.history, n.current)
	n.current = path
}

func (n *HistoryNavigator) Replace(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	log.Debug().Str("from", n.current).Str("to", path).Msg("replace url")
	n.current = path
}

// Current returns the current path.
func (n *HistoryNavigator) Current() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// History returns the paths navigated away from, oldest first.
func (n *HistoryNavigator) History() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.history...)
}
