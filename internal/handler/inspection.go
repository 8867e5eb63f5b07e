// Package handler contains HTTP handlers for the walkthrough API.
//
// This file implements the wizard handlers that read and edit the active
// inspection.
package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/DukeRupert/walkthrough/internal/domain"
	"github.com/DukeRupert/walkthrough/internal/wizard"
)

// =============================================================================
// Handler Configuration
// =============================================================================

// InspectionHandler handles requests that edit the active inspection.
type InspectionHandler struct {
	machine *wizard.Machine
	logger  *slog.Logger
}

// NewInspectionHandler creates a new InspectionHandler.
func NewInspectionHandler(machine *wizard.Machine, logger *slog.Logger) *InspectionHandler {
	return &InspectionHandler{
		machine: machine,
		logger:  logger,
	}
}

// =============================================================================
// Route Registration
// =============================================================================

// RegisterRoutes registers all inspection routes with the provided mux.
//
// Routes:
// - GET    /inspection                            -> Show
// - POST   /inspection/reset                      -> Reset
// - DELETE /inspection/draft                      -> Discard
// - POST   /inspection/step                       -> SetStep
// - POST   /inspection/advance                    -> Advance
// - POST   /inspection/back                       -> Back
// - PATCH  /inspection/details                    -> UpdateDetails
// - PATCH  /inspection/utilities                  -> UpdateUtilities
// - POST   /inspection/rooms                      -> AddRoom
// - PATCH  /inspection/rooms/{id}                 -> UpdateRoom
// - DELETE /inspection/rooms/{id}                 -> RemoveRoom
// - POST   /inspection/rooms/{id}/photos          -> AddRoomPhotos
// - DELETE /inspection/rooms/{id}/photos/{index}  -> RemoveRoomPhoto
// - POST   /inspection/issues                     -> AddIssue
// - PATCH  /inspection/issues/{id}                -> UpdateIssue
// - DELETE /inspection/issues/{id}                -> RemoveIssue
// - POST   /inspection/issues/{id}/photos         -> AddIssuePhotos
// - DELETE /inspection/issues/{id}/photos/{index} -> RemoveIssuePhoto
func (h *InspectionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /inspection", h.Show)
	mux.HandleFunc("POST /inspection/reset", h.Reset)
	mux.HandleFunc("DELETE /inspection/draft", h.Discard)

	mux.HandleFunc("POST /inspection/step", h.SetStep)
	mux.HandleFunc("POST /inspection/advance", h.Advance)
	mux.HandleFunc("POST /inspection/back", h.Back)

	mux.HandleFunc("PATCH /inspection/details", h.UpdateDetails)
	mux.HandleFunc("PATCH /inspection/utilities", h.UpdateUtilities)

	mux.HandleFunc("POST /inspection/rooms", h.AddRoom)
	mux.HandleFunc("PATCH /inspection/rooms/{id}", h.UpdateRoom)
	mux.HandleFunc("DELETE /inspection/rooms/{id}", h.RemoveRoom)
	mux.HandleFunc("POST /inspection/rooms/{id}/photos", h.AddRoomPhotos)
	mux.HandleFunc("DELETE /inspection/rooms/{id}/photos/{index}", h.RemoveRoomPhoto)

	mux.HandleFunc("POST /inspection/issues", h.AddIssue)
	mux.HandleFunc("PATCH /inspection/issues/{id}", h.UpdateIssue)
	mux.HandleFunc("DELETE /inspection/issues/{id}", h.RemoveIssue)
	mux.HandleFunc("POST /inspection/issues/{id}/photos", h.AddIssuePhotos)
	mux.HandleFunc("DELETE /inspection/issues/{id}/photos/{index}", h.RemoveIssuePhoto)
}

// inspectionResponse is the body returned by every wizard operation.
type inspectionResponse struct {
	Inspection domain.Inspection `json:"inspection"`
	Stats      domain.Stats      `json:"stats"`
}

func (h *InspectionHandler) respond(w http.ResponseWriter, status int, inspection domain.Inspection) {
	writeJSON(w, status, inspectionResponse{
		Inspection: inspection,
		Stats:      inspection.Stats(),
	})
}

// result writes the outcome of a machine operation.
func (h *InspectionHandler) result(w http.ResponseWriter, r *http.Request, status int, inspection domain.Inspection, err error) {
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	h.respond(w, status, inspection)
}

// =============================================================================
// GET /inspection - Current Inspection
// =============================================================================

// Show returns the active inspection.
func (h *InspectionHandler) Show(w http.ResponseWriter, r *http.Request) {
	h.respond(w, http.StatusOK, h.machine.Snapshot())
}

// =============================================================================
// POST /inspection/reset, DELETE /inspection/draft - Start Over
// =============================================================================

// Reset starts a new inspection, replacing the draft.
func (h *InspectionHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("Starting new inspection")
	inspection, err := h.machine.Reset()
	h.result(w, r, http.StatusOK, inspection, err)
}

// Discard deletes the stored draft and starts a new inspection.
func (h *InspectionHandler) Discard(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("Discarding inspection draft")
	inspection, err := h.machine.Discard()
	h.result(w, r, http.StatusOK, inspection, err)
}

// =============================================================================
// Step Navigation
// =============================================================================

// SetStep jumps to a step without validating the current one.
func (h *InspectionHandler) SetStep(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Step domain.Step `json:"step"`
	}
	if err := decodeJSON(w, r, maxJSONBody, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if !req.Step.IsValid() {
		ValidationErrorResponse(w, r, h.logger,
			domain.NewValidationError("handler.set_step", "step", "Step must be between 1 and 7"))
		return
	}

	inspection, err := h.machine.SetStep(req.Step)
	h.result(w, r, http.StatusOK, inspection, err)
}

// Advance validates the current step and moves to the next.
func (h *InspectionHandler) Advance(w http.ResponseWriter, r *http.Request) {
	inspection, err := h.machine.Advance()
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	h.respond(w, http.StatusOK, inspection)
}

// Back moves to the previous step.
func (h *InspectionHandler) Back(w http.ResponseWriter, r *http.Request) {
	inspection, err := h.machine.Back()
	h.result(w, r, http.StatusOK, inspection, err)
}

// =============================================================================
// PATCH /inspection/details, PATCH /inspection/utilities
// =============================================================================

// UpdateDetails merges the supplied detail fields.
func (h *InspectionHandler) UpdateDetails(w http.ResponseWriter, r *http.Request) {
	var patch wizard.DetailsPatch
	if err := decodeJSON(w, r, maxJSONBody, &patch); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if err := validateDetailsPatch(patch); err != nil {
		ValidationErrorResponse(w, r, h.logger, err)
		return
	}

	inspection, err := h.machine.UpdateDetails(patch)
	h.result(w, r, http.StatusOK, inspection, err)
}

// UpdateUtilities merges the supplied meter readings and checks.
func (h *InspectionHandler) UpdateUtilities(w http.ResponseWriter, r *http.Request) {
	var patch wizard.UtilitiesPatch
	if err := decodeJSON(w, r, maxPhotoBody, &patch); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	for _, m := range []*domain.Meter{patch.Gas, patch.Electric, patch.Water} {
		if m == nil || m.Photo == nil {
			continue
		}
		if err := domain.ValidatePhoto(*m.Photo); err != nil {
			ErrorResponse(w, r, h.logger, err)
			return
		}
	}

	inspection, err := h.machine.UpdateUtilities(patch)
	h.result(w, r, http.StatusOK, inspection, err)
}

// =============================================================================
// Rooms
// =============================================================================

// AddRoom appends a custom room.
func (h *InspectionHandler) AddRoom(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(w, r, maxJSONBody, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	id, err := h.machine.AddRoom(req.Name)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	h.logger.Info("Room added", "room_id", id)
	h.respond(w, http.StatusCreated, h.machine.Snapshot())
}

// UpdateRoom merges the supplied room fields.
func (h *InspectionHandler) UpdateRoom(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var patch wizard.RoomPatch
	if err := decodeJSON(w, r, maxPhotoBody, &patch); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if err := validateRoomPatch(patch); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	inspection, err := h.machine.UpdateRoom(id, patch)
	h.result(w, r, http.StatusOK, inspection, err)
}

// RemoveRoom deletes a room. Unknown ids are ignored.
func (h *InspectionHandler) RemoveRoom(w http.ResponseWriter, r *http.Request) {
	inspection, err := h.machine.RemoveRoom(r.PathValue("id"))
	h.result(w, r, http.StatusOK, inspection, err)
}

// AddRoomPhotos appends uploaded photos to a room.
func (h *InspectionHandler) AddRoomPhotos(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if snap := h.machine.Snapshot(); snap.FindRoom(id) < 0 {
		ErrorResponse(w, r, h.logger, domain.NotFound("handler.add_room_photos", "room", id))
		return
	}

	photos, err := readPhotos(w, r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	inspection, err := h.machine.AddRoomPhotos(id, photos)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	h.logger.Info("Room photos added", "room_id", id, "count", len(photos))
	h.respond(w, http.StatusCreated, inspection)
}

// RemoveRoomPhoto deletes one photo from a room by position.
func (h *InspectionHandler) RemoveRoomPhoto(w http.ResponseWriter, r *http.Request) {
	index, err := photoIndex(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	inspection, err := h.machine.RemoveRoomPhoto(r.PathValue("id"), index)
	h.result(w, r, http.StatusOK, inspection, err)
}

// =============================================================================
// Issues
// =============================================================================

// AddIssue appends a blank issue with medium priority.
func (h *InspectionHandler) AddIssue(w http.ResponseWriter, r *http.Request) {
	id, err := h.machine.AddIssue()
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	h.logger.Info("Issue added", "issue_id", id)
	h.respond(w, http.StatusCreated, h.machine.Snapshot())
}

// UpdateIssue merges the supplied issue fields.
func (h *InspectionHandler) UpdateIssue(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var patch wizard.IssuePatch
	if err := decodeJSON(w, r, maxPhotoBody, &patch); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if err := validateIssuePatch(patch); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	inspection, err := h.machine.UpdateIssue(id, patch)
	h.result(w, r, http.StatusOK, inspection, err)
}

// RemoveIssue deletes an issue. Unknown ids are ignored.
func (h *InspectionHandler) RemoveIssue(w http.ResponseWriter, r *http.Request) {
	inspection, err := h.machine.RemoveIssue(r.PathValue("id"))
	h.result(w, r, http.StatusOK, inspection, err)
}

// AddIssuePhotos appends uploaded photos to an issue.
func (h *InspectionHandler) AddIssuePhotos(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if snap := h.machine.Snapshot(); snap.FindIssue(id) < 0 {
		ErrorResponse(w, r, h.logger, domain.NotFound("handler.add_issue_photos", "issue", id))
		return
	}

	photos, err := readPhotos(w, r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	inspection, err := h.machine.AddIssuePhotos(id, photos)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	h.logger.Info("Issue photos added", "issue_id", id, "count", len(photos))
	h.respond(w, http.StatusCreated, inspection)
}

// RemoveIssuePhoto deletes one photo from an issue by position.
func (h *InspectionHandler) RemoveIssuePhoto(w http.ResponseWriter, r *http.Request) {
	index, err := photoIndex(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	inspection, err := h.machine.RemoveIssuePhoto(r.PathValue("id"), index)
	h.result(w, r, http.StatusOK, inspection, err)
}

// =============================================================================
// Validation Helpers
// =============================================================================

func validateDetailsPatch(p wizard.DetailsPatch) error {
	fields := map[string]string{}
	if p.InspectionType != nil && !p.InspectionType.IsValid() {
		fields["inspectionType"] = "Unknown inspection type"
	}
	if p.InspectionDate != nil && *p.InspectionDate != "" {
		if _, err := time.Parse(domain.DateLayout, *p.InspectionDate); err != nil {
			fields["inspectionDate"] = "Date must be YYYY-MM-DD"
		}
	}
	if len(fields) > 0 {
		return &domain.ValidationError{Op: "handler.update_details", Fields: fields}
	}
	return nil
}

func validateRoomPatch(p wizard.RoomPatch) error {
	if p.Condition != nil && !p.Condition.IsValid() {
		return domain.NewValidationError("handler.update_room", "condition", "Unknown condition")
	}
	if p.Photos != nil {
		for _, photo := range *p.Photos {
			if err := domain.ValidatePhoto(photo); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateIssuePatch(p wizard.IssuePatch) error {
	if p.Priority != nil && !p.Priority.IsValid() {
		return domain.NewValidationError("handler.update_issue", "priority", "Unknown priority")
	}
	if p.Photos != nil {
		for _, photo := range *p.Photos {
			if err := domain.ValidatePhoto(photo); err != nil {
				return err
			}
		}
	}
	return nil
}

// photoIndex parses the {index} path value.
func photoIndex(r *http.Request) (int, error) {
	raw := r.PathValue("index")
	i, err := strconv.Atoi(raw)
	if err != nil || i < 0 {
		return 0, domain.NotFound("handler.photo_index", "photo", raw)
	}
	return i, nil
}
