package storage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/DukeRupert/walkthrough/internal/domain"
	"github.com/DukeRupert/walkthrough/internal/metrics"
)

// MaxReportSize bounds an archived report.
const MaxReportSize = 100 * 1024 * 1024

// ReportArchive stores generated reports.
type ReportArchive struct {
	store     Storage
	logger    *slog.Logger
	urlExpiry time.Duration
	now       func() time.Time
}

// NewReportArchive wraps a Storage. urlExpiry is passed to Storage.URL.
func NewReportArchive(store Storage, urlExpiry time.Duration, logger *slog.Logger) *ReportArchive {
	return &ReportArchive{
		store:     store,
		logger:    logger.With("component", "report_archive"),
		urlExpiry: urlExpiry,
		now:       time.Now,
	}
}

// Save stores a PDF report for an inspection and returns its record.
func (a *ReportArchive) Save(ctx context.Context, listingID, inspectionID domain.ExternalID, data []byte) (*domain.Report, error) {
	const op = "report.archive"

	format := domain.ReportFormatPDF
	key := ReportKey(listingID, inspectionID, format)

	err := a.store.Put(ctx, key, bytes.NewReader(data), PutOptions{
		ContentType: format.ContentType(),
		MaxSize:     MaxReportSize,
	})
	if err != nil {
		metrics.ReportsGenerated.WithLabelValues(format.String(), "archive_failed").Inc()
		return nil, domain.Internal(err, op, "Failed to archive report")
	}

	url, err := a.store.URL(ctx, key, a.urlExpiry)
	if err != nil {
		// The report is stored; it can still be served by key.
		a.logger.Warn("Failed to build report URL", "key", key, "error", err)
	}

	metrics.ReportsGenerated.WithLabelValues(format.String(), "archived").Inc()
	a.logger.Info("Archived report", "key", key, "size", len(data), "listing_id", listingID.String())

	return &domain.Report{
		ListingID:    listingID,
		InspectionID: inspectionID,
		Format:       format,
		StorageKey:   key,
		URL:          url,
		SizeBytes:    int64(len(data)),
		GeneratedAt:  a.now().UTC(),
	}, nil
}

// Open returns the stored report at key.
func (a *ReportArchive) Open(ctx context.Context, key string) ([]byte, error) {
	rc, _, err := a.store.Get(ctx, key)
	if err != nil {
		if IsNotFound(err) {
			return nil, domain.NotFound("report.open", "report", key)
		}
		return nil, domain.Internal(err, "report.open", "Failed to read report")
	}
	defer rc.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(rc); err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	return buf.Bytes(), nil
}
