package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/DukeRupert/walkthrough/internal/domain"
	"github.com/DukeRupert/walkthrough/internal/submission"
	"github.com/DukeRupert/walkthrough/internal/wizard"
)

// Submitter runs the submission pipeline.
type Submitter interface {
	Submit(ctx context.Context, inspection submission.Inspection, status submission.StatusFunc) (*submission.Result, error)
}

// ReportArchive stores generated reports. Optional.
type ReportArchive interface {
	Save(ctx context.Context, listingID, inspectionID domain.ExternalID, data []byte) (*domain.Report, error)
}

// SubmissionHandler handles submission of the active inspection and the
// report download that follows it.
type SubmissionHandler struct {
	submitter Submitter
	reports   submission.ReportGenerator
	archive   ReportArchive
	machine   *wizard.Machine
	logger    *slog.Logger
}

// NewSubmissionHandler creates a new SubmissionHandler. archive may be nil,
// in which case reports are not stored.
func NewSubmissionHandler(
	submitter Submitter,
	reports submission.ReportGenerator,
	archive ReportArchive,
	machine *wizard.Machine,
	logger *slog.Logger,
) *SubmissionHandler {
	return &SubmissionHandler{
		submitter: submitter,
		reports:   reports,
		archive:   archive,
		machine:   machine,
		logger:    logger,
	}
}

// RegisterRoutes registers submission routes.
//
// Routes:
// - POST /inspection/submit -> Submit
// - GET  /inspection/report -> Report
func (h *SubmissionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /inspection/submit", h.Submit)
	mux.HandleFunc("GET /inspection/report", h.Report)
}

// =============================================================================
// POST /inspection/submit - Submit Inspection
// =============================================================================

// SubmitResponse is the body returned after a successful submission.
type SubmitResponse struct {
	Inspection    domain.Inspection    `json:"inspection"`
	Outcomes      []submission.Outcome `json:"outcomes"`
	PhotoFailures int                  `json:"photoFailures"`
	Report        *domain.Report       `json:"report,omitempty"`
	ReportURL     string               `json:"reportUrl,omitempty"`
	ReportError   string               `json:"reportError,omitempty"`
}

// Submit pushes the inspection to the property management system. Only one
// submission runs at a time, and the inspection cannot be edited while it
// runs.
func (h *SubmissionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	sub, err := h.machine.BeginSubmission()
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	defer sub.End()

	result, err := h.submitter.Submit(r.Context(), sub, func(label string) {
		if label != "" {
			h.logger.Debug("Submission progress", "status", label)
		}
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	inspection := h.machine.Snapshot()
	resp := SubmitResponse{
		Inspection:    inspection,
		Outcomes:      result.Outcomes,
		PhotoFailures: result.PhotoFailures,
	}

	if result.ReportErr != nil {
		resp.ReportError = reportErrorMessage
	} else if h.archive != nil && inspection.Listing != nil {
		report, err := h.archive.Save(r.Context(), inspection.Listing.ID, result.InspectionID, result.Report)
		if err != nil {
			h.logger.Warn("Failed to archive report", "error", err, "inspection_id", result.InspectionID.String())
			resp.ReportError = reportErrorMessage
		} else {
			resp.Report = report
			resp.ReportURL = report.URL
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
