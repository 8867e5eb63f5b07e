package submission

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/DukeRupert/walkthrough/internal/domain"
	"github.com/DukeRupert/walkthrough/internal/gateway"
	"github.com/DukeRupert/walkthrough/internal/metrics"
)

// FallbackMessage is shown when a failure carries no message of its own.
const FallbackMessage = "Failed to submit inspection. Please try again."

// Stage names.
const (
	StageValidate         = "validate"
	StageCreateInspection = "create-inspection"
	StageUploadRoomPhotos = "upload-room-photos"
	StageFinalize         = "finalize-inspection"
	StageCreateIssues     = "create-issues"
	StageNotify           = "notify"
	StageGenerateReport   = "generate-report"
)

// Gateway is the subset of the property management API the pipeline uses.
type Gateway interface {
	CreateInspection(ctx context.Context, listingID domain.ExternalID, payload gateway.InspectionPayload) (domain.ExternalID, error)
	UpdateInspection(ctx context.Context, listingID, inspectionID domain.ExternalID, payload gateway.InspectionPayload) error
	UploadInspectionMedia(ctx context.Context, listingID, inspectionID domain.ExternalID, photo domain.Photo) error
	CreateIssue(ctx context.Context, listingID domain.ExternalID, payload gateway.IssuePayload) (domain.ExternalID, error)
	UploadIssueMedia(ctx context.Context, listingID, issueID domain.ExternalID, photo domain.Photo) error
	SendNotification(ctx context.Context, payload gateway.NotificationPayload) error
}

// ReportGenerator renders the final report.
type ReportGenerator interface {
	Generate(ctx context.Context, inspection *domain.Inspection, w io.Writer) (int64, error)
}

// Inspection is the wizard state the pipeline reads and completes.
type Inspection interface {
	Snapshot() domain.Inspection
	MarkSubmitted(result domain.SubmissionResult) domain.Inspection
	SetStep(step domain.Step) domain.Inspection
}

// Result describes a submission run.
type Result struct {
	Submitted    bool              `json:"submitted"`
	InspectionID domain.ExternalID `json:"inspectionId,omitempty"`
	Outcomes     []Outcome         `json:"outcomes"`

	// Report holds the rendered report when generation succeeded.
	Report []byte `json:"-"`

	// ReportErr is set when every submission stage succeeded but the
	// report could not be generated.
	ReportErr error `json:"-"`

	// PhotoFailures counts photo uploads that were skipped.
	PhotoFailures int `json:"photoFailures"`
}

// Pipeline submits inspections.
type Pipeline struct {
	gateway Gateway
	report  ReportGenerator
	logger  *slog.Logger
	now     func() time.Time
}

// New creates a submission pipeline.
func New(gw Gateway, report ReportGenerator, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		gateway: gw,
		report:  report,
		logger:  logger.With("component", "submission"),
		now:     time.Now,
	}
}

// state is shared by the stages of one run.
type state struct {
	inspection    domain.Inspection
	listingID     domain.ExternalID
	inspectionID  domain.ExternalID
	payload       gateway.InspectionPayload
	photoFailures int
	report        bytes.Buffer
}

// Stages returns the ordered stage list.
func (p *Pipeline) Stages() []Stage {
	return []Stage{
		{Name: StageValidate, Label: "Checking listing...", Policy: AbortOnFailure, Run: p.validate},
		{Name: StageCreateInspection, Label: "Creating inspection record...", Policy: AbortOnFailure, Run: p.createInspection},
		{Name: StageUploadRoomPhotos, Label: "Uploading room photos...", Policy: ContinueOnFailure, Run: p.uploadRoomPhotos},
		{Name: StageFinalize, Label: "Finalizing inspection...", Policy: AbortOnFailure, Run: p.finalize},
		{Name: StageCreateIssues, Label: "Recording maintenance issues...", Policy: AbortOnFailure, Run: p.createIssues},
		{Name: StageNotify, Label: "Sending notifications...", Policy: ContinueOnFailure, Run: p.notify},
		{Name: StageGenerateReport, Label: "Generating PDF report...", Policy: ContinueOnFailure, Run: p.generateReport},
	}
}

// Submit runs the pipeline against the current inspection. When a critical
// stage fails the inspection is left unsubmitted and the returned error
// carries a message for the user. A report failure does not fail the
// submission; it is reported in Result.ReportErr.
func (p *Pipeline) Submit(ctx context.Context, inspection Inspection, status StatusFunc) (*Result, error) {
	s := &state{inspection: inspection.Snapshot()}
	if s.inspection.Listing != nil {
		s.listingID = s.inspection.Listing.ID
	}

	logger := p.logger.With("listing_id", s.listingID.String())
	outcomes, err := runStages(ctx, p.Stages(), s, status, logger)

	result := &Result{
		InspectionID:  s.inspectionID,
		Outcomes:      outcomes,
		PhotoFailures: s.photoFailures,
	}

	if err != nil {
		metrics.Submissions.WithLabelValues("failed").Inc()
		return result, userError(err)
	}

	for _, o := range outcomes {
		if o.Stage == StageGenerateReport && o.Err() != nil {
			result.ReportErr = o.Err()
		}
	}
	if result.ReportErr == nil {
		result.Report = s.report.Bytes()
	}

	inspection.MarkSubmitted(domain.SubmissionResult{
		Success:      true,
		InspectionID: s.inspectionID,
		Timestamp:    p.now().UTC(),
	})
	inspection.SetStep(domain.StepComplete)
	result.Submitted = true

	metrics.Submissions.WithLabelValues("submitted").Inc()
	logger.Info("Inspection submitted", "inspection_id", s.inspectionID.String(), "photo_failures", s.photoFailures)
	return result, nil
}

// userError wraps err so that domain.ErrorMessage yields the raised
// message, or FallbackMessage when there is none.
func userError(err error) error {
	var de *domain.Error
	if errors.As(err, &de) && de.Code != domain.EINTERNAL {
		if de.Message == "" {
			return domain.Wrap(err, de.Code, "submission.submit", FallbackMessage)
		}
		return err
	}

	msg := err.Error()
	if msg == "" {
		msg = FallbackMessage
	}
	return domain.Upstream(err, "submission.submit", msg)
}

// =============================================================================
// Stages
// =============================================================================

func (p *Pipeline) validate(_ context.Context, s *state) error {
	if s.listingID.IsZero() {
		return domain.Invalid("submission.validate", "Missing listing information")
	}
	return nil
}

func (p *Pipeline) createInspection(ctx context.Context, s *state) error {
	d := s.inspection.Details
	s.payload = gateway.InspectionPayload{
		DtsInspection: d.InspectionDate,
		Status:        gateway.InspectionStatusBooked,
		Notes:         d.Notes,
		NotifyTenants: d.NotifyTenants,
	}

	id, err := p.gateway.CreateInspection(ctx, s.listingID, s.payload)
	if err != nil {
		return err
	}
	s.inspectionID = id
	return nil
}

func (p *Pipeline) uploadRoomPhotos(ctx context.Context, s *state) error {
	for _, room := range s.inspection.Rooms {
		for i, photo := range room.Photos {
			err := p.gateway.UploadInspectionMedia(ctx, s.listingID, s.inspectionID, photo)
			metrics.PhotoUploaded("inspection", err)
			if err != nil {
				s.photoFailures++
				p.logger.Warn("Failed to upload room photo", "room_id", room.ID, "photo", i, "error", err)
			}
		}
	}
	return nil
}

func (p *Pipeline) finalize(ctx context.Context, s *state) error {
	payload := s.payload
	payload.Status = gateway.InspectionStatusCompleted
	return p.gateway.UpdateInspection(ctx, s.listingID, s.inspectionID, payload)
}

func (p *Pipeline) createIssues(ctx context.Context, s *state) error {
	for _, issue := range s.inspection.Issues {
		issueID, err := p.gateway.CreateIssue(ctx, s.listingID, IssuePayload(issue))
		if err != nil {
			return err
		}

		for i, photo := range issue.Photos {
			err := p.gateway.UploadIssueMedia(ctx, s.listingID, issueID, photo)
			metrics.PhotoUploaded("issue", err)
			if err != nil {
				s.photoFailures++
				p.logger.Warn("Failed to upload issue photo", "issue_id", issue.ID, "photo", i, "error", err)
			}
		}
	}
	return nil
}

func (p *Pipeline) notify(ctx context.Context, s *state) error {
	return p.gateway.SendNotification(ctx, NotificationPayload(s.listingID, s.inspection))
}

func (p *Pipeline) generateReport(ctx context.Context, s *state) error {
	if p.report == nil {
		return fmt.Errorf("no report generator configured")
	}
	snapshot := s.inspection.Clone()
	if _, err := p.report.Generate(ctx, &snapshot, &s.report); err != nil {
		s.report.Reset()
		return fmt.Errorf("generate report: %w", err)
	}
	return nil
}

// =============================================================================
// Payload Mapping
// =============================================================================

// MapPriority returns the numeric priority sent for an issue.
func MapPriority(p domain.Priority) int {
	return p.Scale()
}

// IssuePayload builds the create-issue body for an issue.
func IssuePayload(issue domain.Issue) gateway.IssuePayload {
	notes := issue.Description
	if notes == "" {
		notes = "Issue identified during inspection"
	}
	progress := ""
	if issue.Room != "" {
		progress = "Location: " + issue.Room
	}

	return gateway.IssuePayload{
		Type:           gateway.IssueTypeMiscellaneous,
		Status:         gateway.IssueStatusNew,
		ReportedSource: gateway.ReportedSourceVisit,
		Notes:          notes,
		ProgressNotes:  progress,
		Priority:       MapPriority(issue.Priority),
	}
}

// NotificationPayload builds the completion notification.
func NotificationPayload(listingID domain.ExternalID, inspection domain.Inspection) gateway.NotificationPayload {
	address := ""
	if inspection.Listing != nil {
		address = inspection.Listing.DisplayAddress
		if address == "" {
			address = inspection.Listing.Address1
		}
	}

	return gateway.NotificationPayload{
		ListingID: listingID,
		Title:     "Inspection Completed",
		Body:      fmt.Sprintf("Inspection completed for %s by %s", address, inspection.Details.InspectorName),
		Icon:      "clipboard-check",
	}
}
