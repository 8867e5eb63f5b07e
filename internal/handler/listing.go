package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/DukeRupert/walkthrough/internal/domain"
	"github.com/DukeRupert/walkthrough/internal/gateway"
	"github.com/DukeRupert/walkthrough/internal/wizard"
)

// ListingGateway is the part of the property management API used to find
// and load properties.
type ListingGateway interface {
	SearchListings(ctx context.Context, term string) ([]gateway.SearchResult, error)
	LoadProperty(ctx context.Context, id domain.ExternalID) (*gateway.Property, error)
}

// ListingHandler handles property search and selection.
type ListingHandler struct {
	gateway ListingGateway
	machine *wizard.Machine
	logger  *slog.Logger
}

// NewListingHandler creates a new ListingHandler.
func NewListingHandler(gw ListingGateway, machine *wizard.Machine, logger *slog.Logger) *ListingHandler {
	return &ListingHandler{
		gateway: gw,
		machine: machine,
		logger:  logger,
	}
}

// RegisterRoutes registers listing routes. limit wraps the search route,
// which calls the upstream API on every keystroke.
//
// Routes:
// - GET  /listings/search      -> Search
// - POST /inspection/listing   -> Select
func (h *ListingHandler) RegisterRoutes(mux *http.ServeMux, limit func(http.Handler) http.Handler) {
	mux.Handle("GET /listings/search", limit(http.HandlerFunc(h.Search)))
	mux.HandleFunc("POST /inspection/listing", h.Select)
}

// =============================================================================
// GET /listings/search - Property Search
// =============================================================================

// Search returns listings matching ?term=. Short terms return an empty list
// without calling the API.
func (h *ListingHandler) Search(w http.ResponseWriter, r *http.Request) {
	term := strings.TrimSpace(r.URL.Query().Get("term"))
	if len([]rune(term)) < gateway.MinSearchLength {
		writeJSON(w, http.StatusOK, []gateway.SearchResult{})
		return
	}

	results, err := h.gateway.SearchListings(r.Context(), term)
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Upstream(err, "handler.search_listings", "Failed to search properties"))
		return
	}

	writeJSON(w, http.StatusOK, results)
}

// =============================================================================
// POST /inspection/listing - Select Property
// =============================================================================

// Select loads a property and its rooms and tenancy, makes it the
// inspection's listing and moves to the details step.
func (h *ListingHandler) Select(w http.ResponseWriter, r *http.Request) {
	const op = "handler.select_listing"

	var req struct {
		ListingID domain.ExternalID `json:"listingId"`
	}
	if err := decodeJSON(w, r, maxJSONBody, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if req.ListingID.IsZero() {
		ValidationErrorResponse(w, r, h.logger, domain.NewValidationError(op, "listingId", "Listing is required"))
		return
	}

	property, err := h.gateway.LoadProperty(r.Context(), req.ListingID)
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Upstream(err, op, "Failed to load property details. Please try again."))
		return
	}

	if _, err := h.machine.SelectListing(property.Listing); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	// A nil tenancy clears one left over from a previous listing
	if _, err := h.machine.SelectTenancy(property.Tenancy); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	inspection, err := h.machine.SetStep(domain.StepDetails)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	h.logger.Info("Property selected",
		"listing_id", req.ListingID.String(),
		"rooms", len(inspection.Rooms),
		"has_tenancy", property.Tenancy != nil,
	)
	writeJSON(w, http.StatusOK, inspectionResponse{
		Inspection: inspection,
		Stats:      inspection.Stats(),
	})
}
