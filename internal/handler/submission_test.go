package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/walkthrough/internal/domain"
	"github.com/DukeRupert/walkthrough/internal/gateway"
	"github.com/DukeRupert/walkthrough/internal/submission"
	"github.com/DukeRupert/walkthrough/internal/wizard"
)

// =============================================================================
// Fakes
// =============================================================================

type fakeSubmitGateway struct {
	createErr error

	// onCreate runs while the inspection record is being created.
	onCreate func()

	mu            sync.Mutex
	issuesCreated int
}

func (f *fakeSubmitGateway) CreateInspection(context.Context, domain.ExternalID, gateway.InspectionPayload) (domain.ExternalID, error) {
	if f.onCreate != nil {
		f.onCreate()
	}
	if f.createErr != nil {
		return "", f.createErr
	}
	return "9001", nil
}

func (f *fakeSubmitGateway) UpdateInspection(context.Context, domain.ExternalID, domain.ExternalID, gateway.InspectionPayload) error {
	return nil
}

func (f *fakeSubmitGateway) UploadInspectionMedia(context.Context, domain.ExternalID, domain.ExternalID, domain.Photo) error {
	return nil
}

func (f *fakeSubmitGateway) CreateIssue(context.Context, domain.ExternalID, gateway.IssuePayload) (domain.ExternalID, error) {
	f.mu.Lock()
	f.issuesCreated++
	f.mu.Unlock()
	return "700", nil
}

func (f *fakeSubmitGateway) UploadIssueMedia(context.Context, domain.ExternalID, domain.ExternalID, domain.Photo) error {
	return nil
}

func (f *fakeSubmitGateway) SendNotification(context.Context, gateway.NotificationPayload) error {
	return nil
}

type fakeReports struct {
	err   error
	calls int
}

func (f *fakeReports) Generate(_ context.Context, inspection *domain.Inspection, w io.Writer) (int64, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	n, err := io.WriteString(w, "%PDF-1.3 "+inspection.Listing.Address())
	return int64(n), err
}

type fakeArchive struct {
	saved []string
	err   error
}

func (f *fakeArchive) Save(_ context.Context, listingID, inspectionID domain.ExternalID, data []byte) (*domain.Report, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.saved = append(f.saved, string(data))
	return &domain.Report{
		ListingID:    listingID,
		InspectionID: inspectionID,
		Format:       domain.ReportFormatPDF,
		StorageKey:   "inspections/1001/9001/reports/r.pdf",
		URL:          "https://reports.example.com/r.pdf",
		SizeBytes:    int64(len(data)),
	}, nil
}

// blockingSubmitter holds a submission open until released.
type blockingSubmitter struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingSubmitter) Submit(ctx context.Context, _ submission.Inspection, _ submission.StatusFunc) (*submission.Result, error) {
	close(b.started)
	<-b.release
	return &submission.Result{Submitted: true}, nil
}

// readyMachine returns a machine holding a complete inspection at the
// review step.
func readyMachine(t *testing.T) *wizard.Machine {
	t.Helper()
	m := newTestMachine(newTestStore())
	m.SelectListing(testListing())
	m.UpdateDetails(wizard.DetailsPatch{InspectorName: wizard.String("Sam")})
	for _, id := range []string{"11", "12"} {
		m.UpdateRoom(id, wizard.RoomPatch{Condition: domain.ConditionPtr(domain.ConditionGood)})
	}
	m.SetStep(domain.StepReview)
	return m
}

func newSubmissionMux(h *SubmissionHandler) *http.ServeMux {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return mux
}

// =============================================================================
// POST /inspection/submit
// =============================================================================

func TestSubmissionHandler_Submit(t *testing.T) {
	m := readyMachine(t)
	reports := &fakeReports{}
	archive := &fakeArchive{}
	pipeline := submission.New(&fakeSubmitGateway{}, reports, discardLogger())
	h := NewSubmissionHandler(pipeline, reports, archive, m, discardLogger())

	rec := doJSON(t, newSubmissionMux(h), http.MethodPost, "/inspection/submit", nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp SubmitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Inspection.Submitted)
	assert.Equal(t, domain.StepComplete, resp.Inspection.Step)
	require.NotNil(t, resp.Inspection.SubmissionResult)
	assert.Equal(t, domain.ExternalID("9001"), resp.Inspection.SubmissionResult.InspectionID)
	assert.Len(t, resp.Outcomes, 7)
	assert.Equal(t, "https://reports.example.com/r.pdf", resp.ReportURL)
	assert.Empty(t, resp.ReportError)

	require.Len(t, archive.saved, 1)
	assert.Equal(t, "%PDF-1.3 1 High Street, Leeds", archive.saved[0])
}

func TestSubmissionHandler_SubmitAbortKeepsInspection(t *testing.T) {
	m := readyMachine(t)
	reports := &fakeReports{}
	archive := &fakeArchive{}
	gw := &fakeSubmitGateway{createErr: &gateway.APIError{Status: 500}}
	pipeline := submission.New(gw, reports, discardLogger())
	h := NewSubmissionHandler(pipeline, reports, archive, m, discardLogger())

	rec := doJSON(t, newSubmissionMux(h), http.MethodPost, "/inspection/submit", nil)

	require.Equal(t, http.StatusBadGateway, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "API error: 500", body.Error.Message)

	snap := m.Snapshot()
	assert.False(t, snap.Submitted)
	assert.Equal(t, domain.StepReview, snap.Step)
	assert.Empty(t, archive.saved)
	assert.Zero(t, reports.calls)
}

func TestSubmissionHandler_ReportFailureReportedSeparately(t *testing.T) {
	m := readyMachine(t)
	reports := &fakeReports{err: errors.New("font missing")}
	archive := &fakeArchive{}
	pipeline := submission.New(&fakeSubmitGateway{}, reports, discardLogger())
	h := NewSubmissionHandler(pipeline, reports, archive, m, discardLogger())

	rec := doJSON(t, newSubmissionMux(h), http.MethodPost, "/inspection/submit", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp SubmitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Inspection.Submitted)
	assert.Equal(t, reportErrorMessage, resp.ReportError)
	last := resp.Outcomes[len(resp.Outcomes)-1]
	assert.Equal(t, submission.StageGenerateReport, last.Stage)
	assert.Equal(t, submission.StatusContinued, last.Status)
	assert.Empty(t, archive.saved)
}

func TestSubmissionHandler_ArchiveFailureDoesNotFail(t *testing.T) {
	m := readyMachine(t)
	reports := &fakeReports{}
	pipeline := submission.New(&fakeSubmitGateway{}, reports, discardLogger())
	h := NewSubmissionHandler(pipeline, reports, &fakeArchive{err: errors.New("bucket gone")}, m, discardLogger())

	rec := doJSON(t, newSubmissionMux(h), http.MethodPost, "/inspection/submit", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp SubmitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Inspection.Submitted)
	assert.Empty(t, resp.ReportURL)
	assert.Equal(t, reportErrorMessage, resp.ReportError)
}

func TestSubmissionHandler_WithoutArchive(t *testing.T) {
	m := readyMachine(t)
	reports := &fakeReports{}
	pipeline := submission.New(&fakeSubmitGateway{}, reports, discardLogger())
	h := NewSubmissionHandler(pipeline, reports, nil, m, discardLogger())

	rec := doJSON(t, newSubmissionMux(h), http.MethodPost, "/inspection/submit", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, m.Snapshot().Submitted)
}

func TestSubmissionHandler_AlreadySubmitted(t *testing.T) {
	m := readyMachine(t)
	m.MarkSubmitted(domain.SubmissionResult{Success: true, InspectionID: "1", Timestamp: testNow})
	reports := &fakeReports{}
	h := NewSubmissionHandler(submission.New(&fakeSubmitGateway{}, reports, discardLogger()), reports, nil, m, discardLogger())

	rec := doJSON(t, newSubmissionMux(h), http.MethodPost, "/inspection/submit", nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Zero(t, reports.calls)
}

func TestSubmissionHandler_ConcurrentSubmitRejected(t *testing.T) {
	m := readyMachine(t)
	blocker := &blockingSubmitter{started: make(chan struct{}), release: make(chan struct{})}
	h := NewSubmissionHandler(blocker, &fakeReports{}, nil, m, discardLogger())
	mux := newSubmissionMux(h)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		req := httptest.NewRequest(http.MethodPost, "/inspection/submit", nil)
		mux.ServeHTTP(httptest.NewRecorder(), req)
	}()

	select {
	case <-blocker.started:
	case <-time.After(time.Second):
		t.Fatal("first submission did not start")
	}

	rec := doJSON(t, mux, http.MethodPost, "/inspection/submit", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Submission already in progress", decodeError(t, rec).Error.Message)

	close(blocker.release)
	wg.Wait()
}

func TestSubmissionHandler_NotAtReview(t *testing.T) {
	m := readyMachine(t)
	m.SetStep(domain.StepIssues)
	reports := &fakeReports{}
	h := NewSubmissionHandler(submission.New(&fakeSubmitGateway{}, reports, discardLogger()), reports, nil, m, discardLogger())

	rec := doJSON(t, newSubmissionMux(h), http.MethodPost, "/inspection/submit", nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.False(t, m.Snapshot().Submitted)
	assert.Zero(t, reports.calls)
}

func TestSubmissionHandler_EditsRejectedWhileSubmitting(t *testing.T) {
	m := readyMachine(t)
	edits := newInspectionMux(m)

	var editCodes []int
	gw := &fakeSubmitGateway{onCreate: func() {
		_, err := m.AddIssue()
		assert.Equal(t, domain.ECONFLICT, domain.ErrorCode(err))

		editCodes = append(editCodes,
			doJSON(t, edits, http.MethodPost, "/inspection/issues", nil).Code,
			doJSON(t, edits, http.MethodPatch, "/inspection/details", map[string]any{"notes": "late"}).Code,
			doJSON(t, edits, http.MethodPost, "/inspection/back", nil).Code,
		)
	}}
	reports := &fakeReports{}
	h := NewSubmissionHandler(submission.New(gw, reports, discardLogger()), reports, nil, m, discardLogger())

	rec := doJSON(t, newSubmissionMux(h), http.MethodPost, "/inspection/submit", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, []int{http.StatusConflict, http.StatusConflict, http.StatusConflict}, editCodes)

	snap := m.Snapshot()
	assert.True(t, snap.Submitted)
	assert.Equal(t, domain.StepComplete, snap.Step)
	assert.Empty(t, snap.Issues)
	assert.Empty(t, snap.Details.Notes)
	assert.Zero(t, gw.issuesCreated)

	rec = doJSON(t, edits, http.MethodPost, "/inspection/issues", nil)
	assert.Equal(t, http.StatusCreated, rec.Code, "edits resume once the submission ends")
}

// =============================================================================
// GET /inspection/report
// =============================================================================

func TestSubmissionHandler_Report(t *testing.T) {
	m := readyMachine(t)
	m.MarkSubmitted(domain.SubmissionResult{Success: true, InspectionID: "9001", Timestamp: testNow})
	reports := &fakeReports{}
	h := NewSubmissionHandler(nil, reports, nil, m, discardLogger())

	rec := doJSON(t, newSubmissionMux(h), http.MethodGet, "/inspection/report", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="inspection-report.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF-1.3 1 High Street, Leeds", rec.Body.String())
}

func TestSubmissionHandler_ReportErrors(t *testing.T) {
	t.Run("not submitted", func(t *testing.T) {
		h := NewSubmissionHandler(nil, &fakeReports{}, nil, readyMachine(t), discardLogger())

		rec := doJSON(t, newSubmissionMux(h), http.MethodGet, "/inspection/report", nil)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("generation fails", func(t *testing.T) {
		m := readyMachine(t)
		m.MarkSubmitted(domain.SubmissionResult{Success: true, InspectionID: "9001", Timestamp: testNow})
		h := NewSubmissionHandler(nil, &fakeReports{err: errors.New("boom")}, nil, m, discardLogger())

		rec := doJSON(t, newSubmissionMux(h), http.MethodGet, "/inspection/report", nil)

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.Equal(t, reportErrorMessage, decodeError(t, rec).Error.Message)
	})
}
