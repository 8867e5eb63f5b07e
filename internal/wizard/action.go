// Package wizard implements the inspection state machine.
//
// Every mutation is an explicit Action. Apply is a pure transition function
// from (state, action) to the next state; Machine wraps it with draft
// persistence so that every accepted transition is saved.
package wizard

import (
	"github.com/DukeRupert/walkthrough/internal/domain"
)

// Action is a mutation request for the active inspection.
type Action interface {
	// Kind identifies the action in logs.
	Kind() string
}

// SetStep moves the wizard to Step. Out-of-range steps are ignored.
type SetStep struct {
	Step domain.Step
}

// SelectListing sets the property and reseeds rooms from its room list,
// discarding any existing room assessments.
type SelectListing struct {
	Listing *domain.Listing
}

// SelectTenancy sets or clears the active tenancy.
type SelectTenancy struct {
	Tenancy *domain.Tenancy
}

// UpdateDetails merges the supplied detail fields.
type UpdateDetails struct {
	Patch DetailsPatch
}

// UpdateRoom merges the supplied fields into the room with RoomID.
type UpdateRoom struct {
	RoomID string
	Patch  RoomPatch
}

// AddRoom appends an unassessed custom room.
type AddRoom struct {
	Name string
}

// RemoveRoom drops the room with RoomID.
type RemoveRoom struct {
	RoomID string
}

// AddRoomPhotos appends Photos to the room with RoomID.
type AddRoomPhotos struct {
	RoomID string
	Photos []domain.Photo
}

// RemoveRoomPhoto drops the photo at Index from the room with RoomID.
type RemoveRoomPhoto struct {
	RoomID string
	Index  int
}

// UpdateUtilities merges the supplied utility fields. A supplied meter
// replaces the whole meter.
type UpdateUtilities struct {
	Patch UtilitiesPatch
}

// AddIssue appends a blank medium-priority issue.
type AddIssue struct{}

// UpdateIssue merges the supplied fields into the issue with IssueID.
type UpdateIssue struct {
	IssueID string
	Patch   IssuePatch
}

// RemoveIssue drops the issue with IssueID.
type RemoveIssue struct {
	IssueID string
}

// AddIssuePhotos appends Photos to the issue with IssueID.
type AddIssuePhotos struct {
	IssueID string
	Photos  []domain.Photo
}

// RemoveIssuePhoto drops the photo at Index from the issue with IssueID.
type RemoveIssuePhoto struct {
	IssueID string
	Index   int
}

// MarkSubmitted records a successful submission.
type MarkSubmitted struct {
	Result domain.SubmissionResult
}

// Reset replaces the inspection with a fresh default. InspectorName
// pre-fills the details when set.
type Reset struct {
	InspectorName string
}

func (SetStep) Kind() string          { return "set_step" }
func (SelectListing) Kind() string    { return "select_listing" }
func (SelectTenancy) Kind() string    { return "select_tenancy" }
func (UpdateDetails) Kind() string    { return "update_details" }
func (UpdateRoom) Kind() string       { return "update_room" }
func (AddRoom) Kind() string          { return "add_room" }
func (RemoveRoom) Kind() string       { return "remove_room" }
func (AddRoomPhotos) Kind() string    { return "add_room_photos" }
func (RemoveRoomPhoto) Kind() string  { return "remove_room_photo" }
func (UpdateUtilities) Kind() string  { return "update_utilities" }
func (AddIssue) Kind() string         { return "add_issue" }
func (UpdateIssue) Kind() string      { return "update_issue" }
func (RemoveIssue) Kind() string      { return "remove_issue" }
func (AddIssuePhotos) Kind() string   { return "add_issue_photos" }
func (RemoveIssuePhoto) Kind() string { return "remove_issue_photo" }
func (MarkSubmitted) Kind() string    { return "mark_submitted" }
func (Reset) Kind() string            { return "reset" }

// =============================================================================
// Patches
// =============================================================================

// DetailsPatch lists detail fields to overwrite. Nil fields are left as is.
type DetailsPatch struct {
	InspectorName  *string                `json:"inspectorName,omitempty"`
	InspectionDate *string                `json:"inspectionDate,omitempty"`
	InspectionType *domain.InspectionType `json:"inspectionType,omitempty"`
	Notes          *string                `json:"notes,omitempty"`
	NotifyTenants  *bool                  `json:"notifyTenants,omitempty"`
}

// RoomPatch lists room fields to overwrite. Photos replaces the whole list.
type RoomPatch struct {
	Name      *string           `json:"name,omitempty"`
	Condition *domain.Condition `json:"condition,omitempty"`
	Notes     *string           `json:"notes,omitempty"`
	Photos    *[]domain.Photo   `json:"photos,omitempty"`
}

// UtilitiesPatch lists utility fields to overwrite.
type UtilitiesPatch struct {
	Gas              *domain.Meter `json:"gas,omitempty"`
	Electric         *domain.Meter `json:"electric,omitempty"`
	Water            *domain.Meter `json:"water,omitempty"`
	SmokeAlarmTested *bool         `json:"smokeAlarm,omitempty"`
	COAlarmTested    *bool         `json:"coAlarm,omitempty"`
	KeysPresent      *string       `json:"keysPresent,omitempty"`
}

// IssuePatch lists issue fields to overwrite. Photos replaces the whole list.
type IssuePatch struct {
	Room        *string          `json:"room,omitempty"`
	Description *string          `json:"description,omitempty"`
	Priority    *domain.Priority `json:"priority,omitempty"`
	Photos      *[]domain.Photo  `json:"photos,omitempty"`
}

// String returns a pointer to s, for building patches.
func String(s string) *string { return &s }

// Bool returns a pointer to b, for building patches.
func Bool(b bool) *bool { return &b }
