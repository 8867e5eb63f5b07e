package wizard

import (
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/DukeRupert/walkthrough/internal/domain"
)

// Store persists the inspection between transitions. Implementations are
// best-effort and never fail the caller.
type Store interface {
	Save(inspection domain.Inspection)
	Load() (domain.Inspection, bool)
	Clear()
	SaveInspectorName(name string)
	LoadInspectorName() string
}

// Machine owns the single active inspection. Dispatch is serialised, so
// concurrent callers observe transitions one at a time. While a Submission
// is held every other mutation is rejected.
type Machine struct {
	mu         sync.Mutex
	state      domain.Inspection
	store      Store
	env        Env
	logger     *slog.Logger
	submitting bool
}

// Option configures a Machine.
type Option func(*Machine)

// WithClock sets the time source used for default dates.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.env.Now = now }
}

// WithIDGenerator sets the generator for custom room and issue ids.
func WithIDGenerator(newID func() string) Option {
	return func(m *Machine) { m.env.NewID = newID }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Machine) { m.logger = logger }
}

// NewMachine restores the stored draft, or starts a fresh inspection when
// there is none. The remembered inspector name fills an empty name.
func NewMachine(store Store, opts ...Option) *Machine {
	m := &Machine{
		store: store,
		env: Env{
			Now:   time.Now,
			NewID: func() string { return uuid.NewString() },
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}

	if draft, ok := store.Load(); ok {
		m.state = draft
		m.logger.Info("Restored inspection draft", "step", draft.Step.String())
	} else {
		m.state = domain.NewInspection(m.env.Now())
	}

	if m.state.Details.InspectorName == "" {
		m.state.Details.InspectorName = store.LoadInspectorName()
	}

	return m
}

// Dispatch applies action, persists the result and returns a copy of it.
func (m *Machine) Dispatch(action Action) (domain.Inspection, error) {
	return m.update("wizard.dispatch", func(*domain.Inspection) (Action, error) {
		return action, nil
	})
}

// update picks an action against the current state and applies it. A nil
// action leaves the state untouched and skips the save.
func (m *Machine) update(op string, plan func(current *domain.Inspection) (Action, error)) (domain.Inspection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.submitting {
		return m.state.Clone(), domain.Conflict(op, "Submission in progress")
	}

	action, err := plan(&m.state)
	if err != nil {
		return m.state.Clone(), err
	}
	if action == nil {
		return m.state.Clone(), nil
	}

	m.apply(action)
	return m.state.Clone(), nil
}

// apply runs a transition. m.mu must be held.
func (m *Machine) apply(action Action) {
	m.state = Apply(m.state, action, m.env)
	m.store.Save(m.state)
	m.logger.Debug("Inspection updated", "action", action.Kind(), "step", int(m.state.Step))
}

// Snapshot returns a copy of the current inspection.
func (m *Machine) Snapshot() domain.Inspection {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Clone()
}

// Submitting reports whether a Submission is held.
func (m *Machine) Submitting() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.submitting
}

// =============================================================================
// Submission
// =============================================================================

// Submission is exclusive use of the inspection by one submission run.
// Its MarkSubmitted and SetStep bypass the lock it holds.
type Submission struct {
	m    *Machine
	once sync.Once
}

// BeginSubmission locks the inspection against edits. It fails when a
// submission is already running, when the inspection was already submitted
// or when it is not at the review step. Call End when done.
func (m *Machine) BeginSubmission() (*Submission, error) {
	const op = "wizard.begin_submission"

	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case m.submitting:
		return nil, domain.Conflict(op, "Submission already in progress")
	case m.state.Submitted:
		return nil, domain.Conflict(op, "Inspection has already been submitted")
	case m.state.Step != domain.StepReview:
		return nil, domain.Conflict(op, "Review the inspection before submitting")
	}

	m.submitting = true
	return &Submission{m: m}, nil
}

// Snapshot returns a copy of the locked inspection.
func (s *Submission) Snapshot() domain.Inspection {
	return s.m.Snapshot()
}

// MarkSubmitted records the submission result.
func (s *Submission) MarkSubmitted(result domain.SubmissionResult) domain.Inspection {
	return s.dispatch(MarkSubmitted{Result: result})
}

// SetStep moves the locked inspection to step.
func (s *Submission) SetStep(step domain.Step) domain.Inspection {
	return s.dispatch(SetStep{Step: step})
}

func (s *Submission) dispatch(action Action) domain.Inspection {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.apply(action)
	return s.m.state.Clone()
}

// End releases the lock. Further calls are no-ops.
func (s *Submission) End() {
	s.once.Do(func() {
		s.m.mu.Lock()
		s.m.submitting = false
		s.m.mu.Unlock()
	})
}

// =============================================================================
// Operations
// =============================================================================

func (m *Machine) SetStep(step domain.Step) (domain.Inspection, error) {
	return m.Dispatch(SetStep{Step: step})
}

func (m *Machine) SelectListing(listing *domain.Listing) (domain.Inspection, error) {
	return m.Dispatch(SelectListing{Listing: listing})
}

func (m *Machine) SelectTenancy(tenancy *domain.Tenancy) (domain.Inspection, error) {
	return m.Dispatch(SelectTenancy{Tenancy: tenancy})
}

// UpdateDetails merges patch. A supplied inspector name is also remembered
// for future inspections.
func (m *Machine) UpdateDetails(patch DetailsPatch) (domain.Inspection, error) {
	out, err := m.Dispatch(UpdateDetails{Patch: patch})
	if err != nil {
		return out, err
	}
	if patch.InspectorName != nil {
		m.store.SaveInspectorName(*patch.InspectorName)
	}
	return out, nil
}

// UpdateRoom merges patch into the room. Unknown ids are ENOTFOUND.
func (m *Machine) UpdateRoom(roomID string, patch RoomPatch) (domain.Inspection, error) {
	return m.update("wizard.update_room", func(cur *domain.Inspection) (Action, error) {
		if cur.FindRoom(roomID) < 0 {
			return nil, domain.NotFound("wizard.update_room", "room", roomID)
		}
		return UpdateRoom{RoomID: roomID, Patch: patch}, nil
	})
}

// AddRoom appends a custom room and returns its id. Blank names are
// rejected.
func (m *Machine) AddRoom(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", domain.NewValidationError("wizard.add_room", "name", "Room name is required")
	}

	out, err := m.Dispatch(AddRoom{Name: name})
	if err != nil {
		return "", err
	}
	return out.Rooms[len(out.Rooms)-1].ID, nil
}

// RemoveRoom drops the room. Unknown ids are ignored.
func (m *Machine) RemoveRoom(roomID string) (domain.Inspection, error) {
	return m.Dispatch(RemoveRoom{RoomID: roomID})
}

// AddRoomPhotos appends photos to the room as it is when the call is
// applied. Unknown ids are ENOTFOUND.
func (m *Machine) AddRoomPhotos(roomID string, photos []domain.Photo) (domain.Inspection, error) {
	return m.update("wizard.add_room_photos", func(cur *domain.Inspection) (Action, error) {
		if cur.FindRoom(roomID) < 0 {
			return nil, domain.NotFound("wizard.add_room_photos", "room", roomID)
		}
		return AddRoomPhotos{RoomID: roomID, Photos: photos}, nil
	})
}

// RemoveRoomPhoto drops the photo at index. Unknown rooms and positions are
// ENOTFOUND.
func (m *Machine) RemoveRoomPhoto(roomID string, index int) (domain.Inspection, error) {
	const op = "wizard.remove_room_photo"
	return m.update(op, func(cur *domain.Inspection) (Action, error) {
		idx := cur.FindRoom(roomID)
		if idx < 0 {
			return nil, domain.NotFound(op, "room", roomID)
		}
		if index < 0 || index >= len(cur.Rooms[idx].Photos) {
			return nil, domain.NotFound(op, "photo", strconv.Itoa(index))
		}
		return RemoveRoomPhoto{RoomID: roomID, Index: index}, nil
	})
}

func (m *Machine) UpdateUtilities(patch UtilitiesPatch) (domain.Inspection, error) {
	return m.Dispatch(UpdateUtilities{Patch: patch})
}

// AddIssue appends a blank issue and returns its id.
func (m *Machine) AddIssue() (string, error) {
	out, err := m.Dispatch(AddIssue{})
	if err != nil {
		return "", err
	}
	return out.Issues[len(out.Issues)-1].ID, nil
}

// UpdateIssue merges patch into the issue. Unknown ids are ENOTFOUND.
func (m *Machine) UpdateIssue(issueID string, patch IssuePatch) (domain.Inspection, error) {
	return m.update("wizard.update_issue", func(cur *domain.Inspection) (Action, error) {
		if cur.FindIssue(issueID) < 0 {
			return nil, domain.NotFound("wizard.update_issue", "issue", issueID)
		}
		return UpdateIssue{IssueID: issueID, Patch: patch}, nil
	})
}

// RemoveIssue drops the issue. Unknown ids are ignored.
func (m *Machine) RemoveIssue(issueID string) (domain.Inspection, error) {
	return m.Dispatch(RemoveIssue{IssueID: issueID})
}

// AddIssuePhotos appends photos to the issue as it is when the call is
// applied. Unknown ids are ENOTFOUND.
func (m *Machine) AddIssuePhotos(issueID string, photos []domain.Photo) (domain.Inspection, error) {
	return m.update("wizard.add_issue_photos", func(cur *domain.Inspection) (Action, error) {
		if cur.FindIssue(issueID) < 0 {
			return nil, domain.NotFound("wizard.add_issue_photos", "issue", issueID)
		}
		return AddIssuePhotos{IssueID: issueID, Photos: photos}, nil
	})
}

// RemoveIssuePhoto drops the photo at index. Unknown issues and positions
// are ENOTFOUND.
func (m *Machine) RemoveIssuePhoto(issueID string, index int) (domain.Inspection, error) {
	const op = "wizard.remove_issue_photo"
	return m.update(op, func(cur *domain.Inspection) (Action, error) {
		idx := cur.FindIssue(issueID)
		if idx < 0 {
			return nil, domain.NotFound(op, "issue", issueID)
		}
		if index < 0 || index >= len(cur.Issues[idx].Photos) {
			return nil, domain.NotFound(op, "photo", strconv.Itoa(index))
		}
		return RemoveIssuePhoto{IssueID: issueID, Index: index}, nil
	})
}

// MarkSubmitted records a submission result outside a Submission.
func (m *Machine) MarkSubmitted(result domain.SubmissionResult) (domain.Inspection, error) {
	return m.Dispatch(MarkSubmitted{Result: result})
}

// Reset starts a fresh inspection, overwriting the stored draft. Unlike
// Apply(Reset{}) it carries over the remembered inspector name.
func (m *Machine) Reset() (domain.Inspection, error) {
	return m.update("wizard.reset", func(*domain.Inspection) (Action, error) {
		return Reset{InspectorName: m.store.LoadInspectorName()}, nil
	})
}

// Discard removes the stored draft and starts a fresh inspection.
func (m *Machine) Discard() (domain.Inspection, error) {
	return m.update("wizard.discard", func(*domain.Inspection) (Action, error) {
		m.store.Clear()
		return Reset{InspectorName: m.store.LoadInspectorName()}, nil
	})
}

// Advance validates the current step and moves forward one step. The
// review step only completes through submission.
func (m *Machine) Advance() (domain.Inspection, error) {
	return m.update("wizard.advance", func(cur *domain.Inspection) (Action, error) {
		if cur.Step >= domain.StepReview {
			return nil, domain.Conflict("wizard.advance", "Submit the inspection to complete it")
		}
		if err := ValidateStep(cur); err != nil {
			return nil, err
		}
		return SetStep{Step: cur.Step + 1}, nil
	})
}

// Back moves to the previous step without touching data.
func (m *Machine) Back() (domain.Inspection, error) {
	return m.update("wizard.back", func(cur *domain.Inspection) (Action, error) {
		if cur.Step <= domain.StepSearch {
			return nil, nil
		}
		return SetStep{Step: cur.Step - 1}, nil
	})
}
