package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/DukeRupert/walkthrough/internal/domain"
)

const reportErrorMessage = "Failed to generate report. Please try again."

// =============================================================================
// GET /inspection/report - Download Report
// =============================================================================

// Report regenerates the PDF for the submitted inspection and sends it as a
// download. The PDF is rendered fully before any byte is written, so a
// failure produces a normal error response.
func (h *SubmissionHandler) Report(w http.ResponseWriter, r *http.Request) {
	const op = "handler.report"

	inspection := h.machine.Snapshot()
	if !inspection.Submitted {
		ErrorResponse(w, r, h.logger, domain.Conflict(op, "Submit the inspection before downloading its report"))
		return
	}

	var buf bytes.Buffer
	if _, err := h.reports.Generate(r.Context(), &inspection, &buf); err != nil {
		h.logger.Error("Failed to generate report", "error", err, "op", op)
		writeJSONError(w, http.StatusInternalServerError, domain.EINTERNAL, reportErrorMessage)
		return
	}

	format := domain.ReportFormatPDF
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", domain.ReportFilename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Warn("Failed to write report", "error", err)
	}
}
