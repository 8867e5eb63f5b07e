// Package domain contains core business types and interfaces.
//
// This file defines the Report types produced after an inspection has been
// submitted.
package domain

import (
	"time"
)

// =============================================================================
// Report Format
// =============================================================================

// ReportFormat represents the output format of a report.
type ReportFormat string

const (
	// ReportFormatPDF generates a PDF document.
	ReportFormatPDF ReportFormat = "pdf"
)

// ReportFilename is the download name offered for generated reports.
const ReportFilename = "inspection-report.pdf"

// String returns the string representation of the format.
func (f ReportFormat) String() string {
	return string(f)
}

// ContentType returns the MIME content type for the format.
func (f ReportFormat) ContentType() string {
	switch f {
	case ReportFormatPDF:
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

// FileExtension returns the file extension for the format.
func (f ReportFormat) FileExtension() string {
	return string(f)
}

// =============================================================================
// Report Domain Type
// =============================================================================

// Report is a generated inspection report archived in storage.
type Report struct {
	ListingID    ExternalID   `json:"listingId"`
	InspectionID ExternalID   `json:"inspectionId"`
	Format       ReportFormat `json:"format"`
	StorageKey   string       `json:"storageKey"`
	URL          string       `json:"url,omitempty"`
	SizeBytes    int64        `json:"sizeBytes"`
	GeneratedAt  time.Time    `json:"generatedAt"`
}
