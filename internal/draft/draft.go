// Package draft persists the in-progress inspection and the remembered
// inspector name.
//
// Persistence is best-effort. Backend failures are logged and counted but
// never returned to the caller: a lost draft costs the inspector some
// re-entry, while a failed save must not block the walkthrough.
package draft

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/DukeRupert/walkthrough/internal/domain"
	"github.com/DukeRupert/walkthrough/internal/metrics"
)

const (
	// DraftKey holds the JSON snapshot of the in-progress inspection.
	DraftKey = "inspection_draft"

	// InspectorNameKey holds the last inspector name entered.
	InspectorNameKey = "agent_name"

	// DefaultTimeout bounds each backend call.
	DefaultTimeout = 2 * time.Second
)

// ErrNotFound is returned by a Backend when the key has no value.
var ErrNotFound = errors.New("draft: key not found")

// Backend is a string key-value store.
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Store is the draft store used by the wizard.
type Store struct {
	backend Backend
	logger  *slog.Logger
	timeout time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithTimeout sets the per-call backend timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewStore creates a Store over the given backend.
func NewStore(backend Backend, logger *slog.Logger, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		logger:  logger.With("component", "draft"),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save overwrites the stored snapshot.
func (s *Store) Save(inspection domain.Inspection) {
	data, err := json.Marshal(inspection)
	if err != nil {
		s.fail("save", err)
		return
	}

	ctx, cancel := s.context()
	defer cancel()

	if err := s.backend.Set(ctx, DraftKey, string(data)); err != nil {
		s.fail("save", err)
		return
	}
	metrics.DraftOperations.WithLabelValues("save").Inc()
}

// Load returns the stored snapshot. The second return value is false when
// there is no draft or it could not be read.
func (s *Store) Load() (domain.Inspection, bool) {
	ctx, cancel := s.context()
	defer cancel()

	raw, err := s.backend.Get(ctx, DraftKey)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.fail("load", err)
		}
		return domain.Inspection{}, false
	}

	var inspection domain.Inspection
	if err := json.Unmarshal([]byte(raw), &inspection); err != nil {
		s.fail("load", err)
		return domain.Inspection{}, false
	}
	if inspection.Rooms == nil {
		inspection.Rooms = []domain.Room{}
	}
	if inspection.Issues == nil {
		inspection.Issues = []domain.Issue{}
	}

	metrics.DraftOperations.WithLabelValues("load").Inc()
	return inspection, true
}

// Clear removes the stored snapshot. The inspector name is kept.
func (s *Store) Clear() {
	ctx, cancel := s.context()
	defer cancel()

	if err := s.backend.Delete(ctx, DraftKey); err != nil && !errors.Is(err, ErrNotFound) {
		s.fail("clear", err)
		return
	}
	metrics.DraftOperations.WithLabelValues("clear").Inc()
}

// SaveInspectorName remembers the inspector name across inspections.
func (s *Store) SaveInspectorName(name string) {
	ctx, cancel := s.context()
	defer cancel()

	if err := s.backend.Set(ctx, InspectorNameKey, name); err != nil {
		s.fail("save_inspector_name", err)
		return
	}
	metrics.DraftOperations.WithLabelValues("save_inspector_name").Inc()
}

// LoadInspectorName returns the remembered name, or an empty string.
func (s *Store) LoadInspectorName() string {
	ctx, cancel := s.context()
	defer cancel()

	name, err := s.backend.Get(ctx, InspectorNameKey)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.fail("load_inspector_name", err)
		}
		return ""
	}
	return name
}

func (s *Store) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

func (s *Store) fail(op string, err error) {
	metrics.DraftErrors.WithLabelValues(op).Inc()
	s.logger.Error("draft operation failed", "op", op, "error", err)
}
