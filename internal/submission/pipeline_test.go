package submission

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/walkthrough/internal/domain"
	"github.com/DukeRupert/walkthrough/internal/draft"
	"github.com/DukeRupert/walkthrough/internal/gateway"
	"github.com/DukeRupert/walkthrough/internal/wizard"
)

// =============================================================================
// Fakes
// =============================================================================

type call struct {
	op      string
	payload any
}

type fakeGateway struct {
	mu    sync.Mutex
	calls []call

	createInspectionErr error
	updateInspectionErr error
	createIssueErr      error
	notifyErr           error
	failMedia           map[int]bool // 1-based index of media uploads to fail
	mediaCount          int
	nextIssueID         int
}

func (g *fakeGateway) record(op string, payload any) {
	g.calls = append(g.calls, call{op: op, payload: payload})
}

func (g *fakeGateway) ops() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, len(g.calls))
	for i, c := range g.calls {
		out[i] = c.op
	}
	return out
}

func (g *fakeGateway) CreateInspection(_ context.Context, _ domain.ExternalID, payload gateway.InspectionPayload) (domain.ExternalID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("create-inspection", payload)
	if g.createInspectionErr != nil {
		return "", g.createInspectionErr
	}
	return "900", nil
}

func (g *fakeGateway) UpdateInspection(_ context.Context, _, _ domain.ExternalID, payload gateway.InspectionPayload) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("update-inspection", payload)
	return g.updateInspectionErr
}

func (g *fakeGateway) upload(op string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.mediaCount++
	g.record(op, g.mediaCount)
	if g.failMedia[g.mediaCount] {
		return &gateway.APIError{Status: 500}
	}
	return nil
}

func (g *fakeGateway) UploadInspectionMedia(_ context.Context, _, _ domain.ExternalID, _ domain.Photo) error {
	return g.upload("upload-inspection-media")
}

func (g *fakeGateway) CreateIssue(_ context.Context, _ domain.ExternalID, payload gateway.IssuePayload) (domain.ExternalID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("create-issue", payload)
	if g.createIssueErr != nil {
		return "", g.createIssueErr
	}
	g.nextIssueID++
	return domain.ExternalID(strconv.Itoa(700 + g.nextIssueID)), nil
}

func (g *fakeGateway) UploadIssueMedia(_ context.Context, _, _ domain.ExternalID, _ domain.Photo) error {
	return g.upload("upload-issue-media")
}

func (g *fakeGateway) SendNotification(_ context.Context, payload gateway.NotificationPayload) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("notify", payload)
	return g.notifyErr
}

type fakeReport struct {
	err error
}

func (r *fakeReport) Generate(_ context.Context, _ *domain.Inspection, w io.Writer) (int64, error) {
	if r.err != nil {
		return 0, r.err
	}
	n, err := w.Write([]byte("%PDF-1.3 test"))
	return int64(n), err
}

type fakeInspection struct {
	state domain.Inspection
}

func (f *fakeInspection) Snapshot() domain.Inspection { return f.state.Clone() }

func (f *fakeInspection) MarkSubmitted(r domain.SubmissionResult) domain.Inspection {
	f.state.Submitted = true
	f.state.SubmissionResult = &r
	return f.state.Clone()
}

func (f *fakeInspection) SetStep(step domain.Step) domain.Inspection {
	f.state.Step = step
	return f.state.Clone()
}

// =============================================================================
// Helpers
// =============================================================================

const photo = domain.Photo("data:image/jpeg;base64,/9j/4AAQ")

func testLogger() *slog.Logger {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, nil))
}

func newPipeline(gw Gateway, report ReportGenerator) *Pipeline {
	p := New(gw, report, testLogger())
	p.now = func() time.Time { return time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC) }
	return p
}

// sampleInspection has two rooms with one and two photos, and one issue
// with one photo.
func sampleInspection() domain.Inspection {
	good := domain.ConditionGood
	fair := domain.ConditionFair
	i := domain.NewInspection(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))
	i.Step = domain.StepReview
	i.Listing = &domain.Listing{ID: "42", DisplayAddress: "12 High Street, Bath"}
	i.Details.InspectorName = "Sam Carter"
	i.Details.Notes = "All fine"
	i.Rooms = []domain.Room{
		{ID: "r1", Name: "Kitchen", Condition: &good, Photos: []domain.Photo{photo}},
		{ID: "r2", Name: "Lounge", Condition: &fair, Photos: []domain.Photo{photo, photo}},
	}
	i.Issues = []domain.Issue{
		{ID: "issue-1", Room: "Kitchen", Description: "Leaking tap", Priority: domain.PriorityHigh, Photos: []domain.Photo{photo}},
	}
	return i
}

func statuses(outcomes []Outcome) map[string]string {
	out := make(map[string]string, len(outcomes))
	for _, o := range outcomes {
		out[o.Stage] = o.Status
	}
	return out
}

// =============================================================================
// Tests
// =============================================================================

func TestSubmit_PartialPhotoFailureStillSubmits(t *testing.T) {
	gw := &fakeGateway{failMedia: map[int]bool{2: true}}
	insp := &fakeInspection{state: sampleInspection()}
	p := newPipeline(gw, &fakeReport{})

	var labels []string
	result, err := p.Submit(context.Background(), insp, func(l string) { labels = append(labels, l) })
	require.NoError(t, err)

	assert.Equal(t, []string{
		"create-inspection",
		"upload-inspection-media",
		"upload-inspection-media",
		"upload-inspection-media",
		"update-inspection",
		"create-issue",
		"upload-issue-media",
		"notify",
	}, gw.ops())

	assert.True(t, result.Submitted)
	assert.Equal(t, domain.ExternalID("900"), result.InspectionID)
	assert.Equal(t, 1, result.PhotoFailures)
	assert.NoError(t, result.ReportErr)
	assert.Equal(t, []byte("%PDF-1.3 test"), result.Report)

	assert.True(t, insp.state.Submitted)
	assert.Equal(t, domain.StepComplete, insp.state.Step)
	require.NotNil(t, insp.state.SubmissionResult)
	assert.True(t, insp.state.SubmissionResult.Success)
	assert.Equal(t, domain.ExternalID("900"), insp.state.SubmissionResult.InspectionID)

	assert.Equal(t, []string{
		"Checking listing...",
		"Creating inspection record...",
		"Uploading room photos...",
		"Finalizing inspection...",
		"Recording maintenance issues...",
		"Sending notifications...",
		"Generating PDF report...",
		"",
	}, labels)
}

func TestSubmit_Payloads(t *testing.T) {
	gw := &fakeGateway{}
	insp := &fakeInspection{state: sampleInspection()}
	p := newPipeline(gw, &fakeReport{})

	_, err := p.Submit(context.Background(), insp, nil)
	require.NoError(t, err)

	create := gw.calls[0].payload.(gateway.InspectionPayload)
	assert.Equal(t, gateway.InspectionPayload{DtsInspection: "2026-03-14", Status: 0, Notes: "All fine"}, create)

	var update gateway.InspectionPayload
	var issue gateway.IssuePayload
	var note gateway.NotificationPayload
	for _, c := range gw.calls {
		switch c.op {
		case "update-inspection":
			update = c.payload.(gateway.InspectionPayload)
		case "create-issue":
			issue = c.payload.(gateway.IssuePayload)
		case "notify":
			note = c.payload.(gateway.NotificationPayload)
		}
	}
	assert.Equal(t, 1, update.Status)
	assert.Equal(t, "2026-03-14", update.DtsInspection)

	assert.Equal(t, gateway.IssuePayload{
		Type:           12,
		Status:         0,
		ReportedSource: 4,
		Notes:          "Leaking tap",
		ProgressNotes:  "Location: Kitchen",
		Priority:       3,
	}, issue)

	assert.Equal(t, domain.ExternalID("42"), note.ListingID)
	assert.Equal(t, "Inspection Completed", note.Title)
	assert.Equal(t, "Inspection completed for 12 High Street, Bath by Sam Carter", note.Body)
	assert.Equal(t, "clipboard-check", note.Icon)
}

func TestSubmit_MissingListing(t *testing.T) {
	gw := &fakeGateway{}
	state := sampleInspection()
	state.Listing = nil
	insp := &fakeInspection{state: state}

	result, err := newPipeline(gw, &fakeReport{}).Submit(context.Background(), insp, nil)
	require.Error(t, err)

	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
	assert.Equal(t, "Missing listing information", domain.ErrorMessage(err))
	assert.Empty(t, gw.ops())
	assert.False(t, result.Submitted)
	assert.False(t, insp.state.Submitted)
	assert.Equal(t, domain.StepReview, insp.state.Step)

	got := statuses(result.Outcomes)
	assert.Equal(t, StatusFailed, got[StageValidate])
	assert.Equal(t, StatusSkipped, got[StageCreateInspection])
	assert.Equal(t, StatusSkipped, got[StageGenerateReport])
}

func TestSubmit_CriticalFailures(t *testing.T) {
	tests := []struct {
		name       string
		gw         *fakeGateway
		failed     string
		wantCalled []string
		notCalled  []string
	}{
		{
			name:      "create inspection",
			gw:        &fakeGateway{createInspectionErr: &gateway.APIError{Status: 500}},
			failed:    StageCreateInspection,
			notCalled: []string{"upload-inspection-media", "update-inspection", "create-issue", "notify"},
		},
		{
			name:       "finalize",
			gw:         &fakeGateway{updateInspectionErr: &gateway.APIError{Status: 502}},
			failed:     StageFinalize,
			wantCalled: []string{"create-inspection", "upload-inspection-media"},
			notCalled:  []string{"create-issue", "notify"},
		},
		{
			name:       "create issue",
			gw:         &fakeGateway{createIssueErr: errors.New("connection reset")},
			failed:     StageCreateIssues,
			wantCalled: []string{"update-inspection"},
			notCalled:  []string{"upload-issue-media", "notify"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			insp := &fakeInspection{state: sampleInspection()}
			result, err := newPipeline(tt.gw, &fakeReport{}).Submit(context.Background(), insp, nil)
			require.Error(t, err)

			assert.Equal(t, domain.EUPSTREAM, domain.ErrorCode(err))
			assert.NotEmpty(t, domain.ErrorMessage(err))
			assert.False(t, result.Submitted)
			assert.False(t, insp.state.Submitted)
			assert.Equal(t, domain.StepReview, insp.state.Step)

			got := statuses(result.Outcomes)
			assert.Equal(t, StatusFailed, got[tt.failed])
			assert.Equal(t, StatusSkipped, got[StageGenerateReport])

			ops := tt.gw.ops()
			for _, op := range tt.wantCalled {
				assert.Contains(t, ops, op)
			}
			for _, op := range tt.notCalled {
				assert.NotContains(t, ops, op)
			}
		})
	}
}

func TestSubmit_UpstreamMessage(t *testing.T) {
	gw := &fakeGateway{createInspectionErr: &gateway.APIError{Status: 500}}
	insp := &fakeInspection{state: sampleInspection()}

	_, err := newPipeline(gw, &fakeReport{}).Submit(context.Background(), insp, nil)
	require.Error(t, err)
	assert.Equal(t, "API error: 500", domain.ErrorMessage(err))
}

func TestSubmit_NotificationFailureContinues(t *testing.T) {
	gw := &fakeGateway{notifyErr: errors.New("timeout")}
	insp := &fakeInspection{state: sampleInspection()}

	result, err := newPipeline(gw, &fakeReport{}).Submit(context.Background(), insp, nil)
	require.NoError(t, err)

	assert.True(t, result.Submitted)
	assert.Equal(t, StatusContinued, statuses(result.Outcomes)[StageNotify])
	assert.True(t, insp.state.Submitted)
}

func TestSubmit_ReportFailureReportedSeparately(t *testing.T) {
	gw := &fakeGateway{}
	insp := &fakeInspection{state: sampleInspection()}

	result, err := newPipeline(gw, &fakeReport{err: errors.New("font missing")}).Submit(context.Background(), insp, nil)
	require.NoError(t, err)

	assert.True(t, result.Submitted)
	require.Error(t, result.ReportErr)
	assert.Contains(t, result.ReportErr.Error(), "font missing")
	assert.Nil(t, result.Report)
	assert.True(t, insp.state.Submitted)
	assert.Equal(t, domain.StepComplete, insp.state.Step)
	assert.Equal(t, StatusContinued, statuses(result.Outcomes)[StageGenerateReport])
}

func TestSubmit_NoIssuesNoRoomPhotos(t *testing.T) {
	gw := &fakeGateway{}
	state := sampleInspection()
	state.Issues = []domain.Issue{}
	for i := range state.Rooms {
		state.Rooms[i].Photos = []domain.Photo{}
	}
	insp := &fakeInspection{state: state}

	result, err := newPipeline(gw, &fakeReport{}).Submit(context.Background(), insp, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"create-inspection", "update-inspection", "notify"}, gw.ops())
	assert.True(t, result.Submitted)
}

func TestSubmit_WithWizardMachine(t *testing.T) {
	store := draft.NewStore(draft.NewMemoryBackend(), testLogger())
	m := wizard.NewMachine(store)
	m.SelectListing(&domain.Listing{ID: "42", Address1: "12 High Street"})
	m.UpdateDetails(wizard.DetailsPatch{InspectorName: wizard.String("Sam Carter")})
	m.SetStep(domain.StepReview)

	sub, err := m.BeginSubmission()
	require.NoError(t, err)
	defer sub.End()

	gw := &fakeGateway{}
	result, err := newPipeline(gw, &fakeReport{}).Submit(context.Background(), sub, nil)
	require.NoError(t, err)
	require.True(t, result.Submitted)

	snap := m.Snapshot()
	assert.True(t, snap.Submitted)
	assert.Equal(t, domain.StepComplete, snap.Step)

	saved, ok := store.Load()
	require.True(t, ok)
	assert.True(t, saved.Submitted)
}

func TestSubmit_RetryRerunsEveryStage(t *testing.T) {
	store := draft.NewStore(draft.NewMemoryBackend(), testLogger())
	m := wizard.NewMachine(store)
	m.SelectListing(&domain.Listing{ID: "42", Address1: "12 High Street"})
	m.UpdateDetails(wizard.DetailsPatch{InspectorName: wizard.String("Sam Carter")})
	m.SetStep(domain.StepReview)

	gw := &fakeGateway{updateInspectionErr: &gateway.APIError{Status: 503}}
	p := newPipeline(gw, &fakeReport{})

	submit := func() (*Result, error) {
		sub, err := m.BeginSubmission()
		require.NoError(t, err)
		defer sub.End()
		return p.Submit(context.Background(), sub, nil)
	}

	_, err := submit()
	require.Error(t, err)
	snap := m.Snapshot()
	assert.False(t, snap.Submitted)
	assert.Equal(t, domain.StepReview, snap.Step)

	gw.mu.Lock()
	gw.updateInspectionErr = nil
	gw.mu.Unlock()

	result, err := submit()
	require.NoError(t, err)
	assert.True(t, result.Submitted)
	assert.Equal(t, StatusOK, statuses(result.Outcomes)[StageValidate])

	creates := 0
	for _, op := range gw.ops() {
		if op == "create-inspection" {
			creates++
		}
	}
	assert.Equal(t, 2, creates, "a retry starts again from the first stage")

	snap = m.Snapshot()
	assert.True(t, snap.Submitted)
	assert.Equal(t, domain.StepComplete, snap.Step)
}

func TestSubmit_FallbackMessageLeavesCauseIntact(t *testing.T) {
	cause := &domain.Error{Code: domain.EUPSTREAM, Op: "gateway.create_inspection"}
	gw := &fakeGateway{createInspectionErr: cause}
	insp := &fakeInspection{state: sampleInspection()}

	_, err := newPipeline(gw, &fakeReport{}).Submit(context.Background(), insp, nil)
	require.Error(t, err)

	assert.Equal(t, FallbackMessage, domain.ErrorMessage(err))
	assert.Equal(t, domain.EUPSTREAM, domain.ErrorCode(err))
	assert.ErrorIs(t, err, cause)
	assert.Empty(t, cause.Message)
}

func TestIssuePayload_Defaults(t *testing.T) {
	got := IssuePayload(domain.Issue{Priority: "whatever"})
	assert.Equal(t, "Issue identified during inspection", got.Notes)
	assert.Equal(t, "", got.ProgressNotes)
	assert.Equal(t, 2, got.Priority)
}

func TestMapPriority(t *testing.T) {
	tests := []struct {
		priority domain.Priority
		want     int
	}{
		{domain.PriorityLow, 1},
		{domain.PriorityMedium, 2},
		{domain.PriorityHigh, 3},
		{domain.PriorityUrgent, 3},
		{"", 2},
	}
	for _, tt := range tests {
		t.Run(string(tt.priority), func(t *testing.T) {
			assert.Equal(t, tt.want, MapPriority(tt.priority))
		})
	}
}
