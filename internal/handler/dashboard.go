package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/DukeRupert/walkthrough/internal/domain"
	"github.com/DukeRupert/walkthrough/internal/gateway"
	"github.com/DukeRupert/walkthrough/internal/wizard"
)

const (
	// recentDays is how far back the dashboard looks for inspections.
	recentDays = 7

	// recentLimit caps the number of recent inspections shown.
	recentLimit = 10

	recentErrorMessage = "Could not load recent inspections"
)

// InspectionLister lists inspections recorded in the property management
// system.
type InspectionLister interface {
	GetInspections(ctx context.Context, r gateway.DateRange) ([]domain.InspectionRecord, error)
}

// DashboardHandler serves the landing view: a resumable draft and the most
// recent inspections.
type DashboardHandler struct {
	inspections InspectionLister
	machine     *wizard.Machine
	logger      *slog.Logger
	now         func() time.Time
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(inspections InspectionLister, machine *wizard.Machine, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		inspections: inspections,
		machine:     machine,
		logger:      logger,
		now:         time.Now,
	}
}

// RegisterRoutes registers the dashboard route.
func (h *DashboardHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /dashboard", h.Show)
}

// RecentInspection is a dashboard row.
type RecentInspection struct {
	domain.InspectionRecord
	StatusLabel string `json:"statusLabel"`
	Address     string `json:"address,omitempty"`
}

// DashboardData is the dashboard response body.
type DashboardData struct {
	Draft       *domain.Inspection `json:"draft"`
	Stats       *domain.Stats      `json:"stats,omitempty"`
	Recent      []RecentInspection `json:"recent"`
	RecentError string             `json:"recentError,omitempty"`
}

// Show returns the dashboard. A failure to load recent inspections is
// reported in the body and does not fail the request.
func (h *DashboardHandler) Show(w http.ResponseWriter, r *http.Request) {
	data := DashboardData{Recent: []RecentInspection{}}

	// Only drafts with a property are worth resuming
	if snap := h.machine.Snapshot(); snap.HasListing() {
		stats := snap.Stats()
		data.Draft = &snap
		data.Stats = &stats
	}

	records, err := h.inspections.GetInspections(r.Context(), gateway.LastDays(h.now(), recentDays))
	if err != nil {
		h.logger.Warn("Failed to load recent inspections", "error", err)
		data.RecentError = recentErrorMessage
	} else {
		if len(records) > recentLimit {
			records = records[:recentLimit]
		}
		for _, rec := range records {
			data.Recent = append(data.Recent, RecentInspection{
				InspectionRecord: rec,
				StatusLabel:      rec.StatusLabel(),
				Address:          rec.Listing.Address(),
			})
		}
	}

	writeJSON(w, http.StatusOK, data)
}
