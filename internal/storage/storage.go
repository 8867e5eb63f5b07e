// Package storage archives generated inspection reports.
//
// Storage is implemented by LocalStorage (filesystem, for development) and
// R2Storage (Cloudflare R2 or any S3-compatible endpoint). ReportArchive
// layers report naming and metadata on top of either.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/DukeRupert/walkthrough/internal/domain"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Storage defines the interface for object storage operations.
type Storage interface {
	// Put stores data at key. It fails with ErrKeyExists when the key is
	// taken and opts.Overwrite is false.
	Put(ctx context.Context, key string, data io.Reader, opts PutOptions) error

	// Get returns the object at key. The caller must close the reader.
	// Returns ErrNotFound if the key doesn't exist.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)

	// Delete removes the object at key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error

	// URL returns a link to the object. Providers without public access
	// return a presigned URL valid for expires.
	URL(ctx context.Context, key string, expires time.Duration) (string, error)

	Exists(ctx context.Context, key string) (bool, error)
}

// PutOptions configures how an object is stored.
type PutOptions struct {
	ContentType string
	MaxSize     int64 // 0 means no limit
	Overwrite   bool
}

// ObjectInfo contains metadata about a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
	ETag         string
}

// =============================================================================
// Configuration
// =============================================================================

const (
	ProviderLocal = "local"
	ProviderR2    = "r2"
)

// Config selects and configures a storage provider.
type Config struct {
	Provider string
	Local    LocalConfig
	R2       R2Config
}

// LocalConfig holds configuration for local filesystem storage.
type LocalConfig struct {
	// BasePath is the root directory where files are stored.
	BasePath string

	// BaseURL is the public URL prefix for stored files,
	// e.g. "http://localhost:8080/files".
	BaseURL string
}

// R2Config holds configuration for Cloudflare R2 storage.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string

	// PublicURL is the public URL for the bucket, if any. Without it every
	// URL is presigned.
	PublicURL string

	// Region defaults to "auto".
	Region string

	// Endpoint overrides the account endpoint. Any S3-compatible service
	// can be used; path-style addressing is enabled when set.
	Endpoint string
}

// New creates the storage provider named by cfg.Provider.
func New(cfg Config, logger *slog.Logger) (Storage, error) {
	switch cfg.Provider {
	case ProviderLocal, "":
		return NewLocalStorage(cfg.Local, logger)
	case ProviderR2:
		return NewR2Storage(cfg.R2, logger)
	}
	return nil, fmt.Errorf("unknown storage provider %q", cfg.Provider)
}

// =============================================================================
// Key Generation
// =============================================================================

// ReportKey generates a storage key for a generated report.
// Format: inspections/{listingID}/{inspectionID}/reports/{uuid}.{ext}
func ReportKey(listingID, inspectionID domain.ExternalID, format domain.ReportFormat) string {
	inspection := inspectionID.String()
	if inspection == "" {
		inspection = "unsubmitted"
	}
	return fmt.Sprintf("inspections/%s/%s/reports/%s.%s", listingID, inspection, uuid.New(), format.FileExtension())
}
