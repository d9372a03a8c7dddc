package debug

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jdimcp/jdi-mcp/internal/errors"
)

// WatchExpression is a named expression that persists across debug
// operations and is re-evaluated on demand against a suspended frame.
// After the first evaluation exactly one of LastValue/LastError is set.
type WatchExpression struct {
	ID              string
	Expression      string
	LastValue       string
	LastError       string
	LastEvaluatedAt time.Time
}

// Evaluated reports whether the watch has ever been evaluated.
func (w *WatchExpression) Evaluated() bool {
	return !w.LastEvaluatedAt.IsZero()
}

// WatchExpressions stores watch expressions. IDs use the "w-" prefix.
// Storage never touches the adapter; evaluation happens in the evaluator
// against a caller-supplied thread and frame.
type WatchExpressions struct {
	mu      sync.Mutex
	watches map[string]*WatchExpression
	counter int64
}

// NewWatchExpressions creates an empty store.
func NewWatchExpressions() *WatchExpressions {
	return &WatchExpressions{watches: make(map[string]*WatchExpression)}
}

// Add registers a new watch expression and returns its record.
func (s *WatchExpressions) Add(expression string) (*WatchExpression, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, errors.MissingParameter("expression", "Provide the expression to watch, e.g. 'this.counter' or 'list.size()'.")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.counter++
	w := &WatchExpression{ID: fmt.Sprintf("w-%d", s.counter), Expression: expression}
	s.watches[w.ID] = w
	return w.clone(), nil
}

// Remove deletes a watch.
func (s *WatchExpressions) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.watches[id]; !ok {
		return errors.IDNotFound("watch", id)
	}
	delete(s.watches, id)
	return nil
}

// Get returns a snapshot of one watch, or nil.
func (s *WatchExpressions) Get(id string) *WatchExpression {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.watches[id]; ok {
		return w.clone()
	}
	return nil
}

// All returns a snapshot of every watch.
func (s *WatchExpressions) All() []*WatchExpression {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*WatchExpression, 0, len(s.watches))
	for _, w := range s.watches {
		out = append(out, w.clone())
	}
	return out
}

// Count reports the number of stored watches.
func (s *WatchExpressions) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.watches)
}

// SetValue memoises a successful evaluation, clearing any previous error.
func (s *WatchExpressions) SetValue(id, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.watches[id]; ok {
		w.LastValue = value
		w.LastError = ""
		w.LastEvaluatedAt = time.Now()
	}
}

// SetError memoises a failed evaluation, clearing any previous value.
func (s *WatchExpressions) SetError(id, errText string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.watches[id]; ok {
		w.LastError = errText
		w.LastValue = ""
		w.LastEvaluatedAt = time.Now()
	}
}

// ClearAll empties the store.
func (s *WatchExpressions) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watches = make(map[string]*WatchExpression)
}

func (w *WatchExpression) clone() *WatchExpression {
	c := *w
	return &c
}
