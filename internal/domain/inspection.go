// Package domain contains core business types and interfaces.
//
// This file defines the Inspection aggregate captured by the walkthrough
// wizard: the selected property, inspection details, room assessments,
// meter readings, safety checks and maintenance issues.
package domain

import (
	"time"
)

// =============================================================================
// Wizard Step
// =============================================================================

// Step is the wizard position of an inspection, 1 through 7.
type Step int

const (
	StepSearch    Step = 1
	StepDetails   Step = 2
	StepRooms     Step = 3
	StepUtilities Step = 4
	StepIssues    Step = 5
	StepReview    Step = 6
	StepComplete  Step = 7
)

// String returns the display name of the step.
func (s Step) String() string {
	switch s {
	case StepSearch:
		return "Search"
	case StepDetails:
		return "Details"
	case StepRooms:
		return "Rooms"
	case StepUtilities:
		return "Utilities"
	case StepIssues:
		return "Issues"
	case StepReview:
		return "Review"
	case StepComplete:
		return "Complete"
	}
	return "Unknown"
}

// IsValid returns true if the step is within the wizard range.
func (s Step) IsValid() bool {
	return s >= StepSearch && s <= StepComplete
}

// =============================================================================
// Room Condition
// =============================================================================

// Condition is the assessed state of a room.
type Condition string

const (
	ConditionGood Condition = "good"
	ConditionFair Condition = "fair"
	ConditionPoor Condition = "poor"
	ConditionNA   Condition = "na"
)

// String returns the string representation of the condition.
func (c Condition) String() string {
	return string(c)
}

// IsValid returns true if the condition is a recognized value.
func (c Condition) IsValid() bool {
	switch c {
	case ConditionGood, ConditionFair, ConditionPoor, ConditionNA:
		return true
	}
	return false
}

// Label returns a human-readable label for the condition.
func (c Condition) Label() string {
	switch c {
	case ConditionGood:
		return "Good"
	case ConditionFair:
		return "Fair"
	case ConditionPoor:
		return "Poor"
	case ConditionNA:
		return "N/A"
	}
	return "Unknown"
}

// ConditionPtr returns a pointer to c, for building patches.
func ConditionPtr(c Condition) *Condition {
	return &c
}

// =============================================================================
// Issue Priority
// =============================================================================

// Priority is the urgency of a maintenance issue.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"

	// PriorityUrgent is accepted and rendered but is not part of
	// SelectablePriorities.
	PriorityUrgent Priority = "urgent"
)

// SelectablePriorities are the values offered when editing an issue.
var SelectablePriorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// String returns the string representation of the priority.
func (p Priority) String() string {
	return string(p)
}

// IsValid returns true if the priority is a recognized value.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Scale maps the priority to the numeric scale used by the property
// management system. Unrecognized values map to 2.
func (p Priority) Scale() int {
	switch p {
	case PriorityLow:
		return 1
	case PriorityMedium:
		return 2
	case PriorityHigh, PriorityUrgent:
		return 3
	}
	return 2
}

// =============================================================================
// Inspection Type
// =============================================================================

// InspectionType classifies the visit.
type InspectionType string

const (
	InspectionTypeRoutine   InspectionType = "routine"
	InspectionTypeCheckIn   InspectionType = "checkin"
	InspectionTypeCheckOut  InspectionType = "checkout"
	InspectionTypeEmergency InspectionType = "emergency"
)

// IsValid returns true if the type is a recognized value.
func (t InspectionType) IsValid() bool {
	switch t {
	case InspectionTypeRoutine, InspectionTypeCheckIn,
		InspectionTypeCheckOut, InspectionTypeEmergency:
		return true
	}
	return false
}

// DateLayout is the calendar date format used for inspection dates.
const DateLayout = "2006-01-02"

// =============================================================================
// Property Records
// =============================================================================

// Listing is a property record from the property management system.
type Listing struct {
	ID             ExternalID    `json:"id"`
	Reference      string        `json:"reference,omitempty"`
	DisplayAddress string        `json:"displayAddress,omitempty"`
	Address1       string        `json:"address1,omitempty"`
	Address2       string        `json:"address2,omitempty"`
	City           string        `json:"city,omitempty"`
	Postcode       string        `json:"postcode,omitempty"`
	Rooms          []ListingRoom `json:"rooms,omitempty"`
}

// ListingRoom is a room as recorded against a listing.
type ListingRoom struct {
	ID   ExternalID `json:"id"`
	Name string     `json:"name"`
}

// Address returns the display address, falling back to the first address
// line and city.
func (l *Listing) Address() string {
	if l == nil {
		return ""
	}
	if l.DisplayAddress != "" {
		return l.DisplayAddress
	}
	if l.City != "" {
		return l.Address1 + ", " + l.City
	}
	return l.Address1
}

// Tenancy is the active tenancy on a listing. Fields beyond these are
// ignored.
type Tenancy struct {
	ID        ExternalID `json:"id"`
	StartDate string     `json:"startDate,omitempty"`
	EndDate   string     `json:"endDate,omitempty"`
}

// =============================================================================
// Inspection Sections
// =============================================================================

// Details holds the inspection metadata entered on the details step.
type Details struct {
	InspectorName  string         `json:"inspectorName"`
	InspectionDate string         `json:"inspectionDate"` // YYYY-MM-DD
	InspectionType InspectionType `json:"inspectionType"`
	Notes          string         `json:"notes"`
	NotifyTenants  bool           `json:"notifyTenants"`
}

// Room is a room being assessed. A nil Condition means not yet assessed.
type Room struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Condition *Condition `json:"condition"`
	Notes     string     `json:"notes"`
	Photos    []Photo    `json:"photos"`
}

// IsAssessed returns true once a condition has been chosen.
func (r *Room) IsAssessed() bool {
	return r.Condition != nil
}

// Meter is a utility meter reading with an optional photo.
type Meter struct {
	Reading string `json:"reading"`
	Photo   *Photo `json:"photo"`
}

// Utilities holds meter readings and safety checks. Nil alarm fields mean
// the check has not been answered.
type Utilities struct {
	Gas              Meter  `json:"gas"`
	Electric         Meter  `json:"electric"`
	Water            Meter  `json:"water"`
	SmokeAlarmTested *bool  `json:"smokeAlarm"`
	COAlarmTested    *bool  `json:"coAlarm"`
	KeysPresent      string `json:"keysPresent"`
}

// Issue is a maintenance issue raised during the walkthrough.
type Issue struct {
	ID          string   `json:"id"`
	Room        string   `json:"room"` // free-text location label
	Description string   `json:"description"`
	Priority    Priority `json:"priority"`
	Photos      []Photo  `json:"photos"`
}

// SubmissionResult records a successful submission.
type SubmissionResult struct {
	Success      bool       `json:"success"`
	InspectionID ExternalID `json:"inspectionId"`
	Timestamp    time.Time  `json:"timestamp"`
}

// =============================================================================
// Inspection Aggregate
// =============================================================================

// Inspection is the single in-progress walkthrough.
type Inspection struct {
	Step             Step              `json:"step"`
	Listing          *Listing          `json:"listing"`
	Tenancy          *Tenancy          `json:"tenancy"`
	Details          Details           `json:"details"`
	Rooms            []Room            `json:"rooms"`
	Utilities        Utilities         `json:"utilities"`
	Issues           []Issue           `json:"issues"`
	Submitted        bool              `json:"submitted"`
	SubmissionResult *SubmissionResult `json:"submissionResult"`
}

// NewInspection returns the default state: step 1, no listing, today's date
// and a routine inspection type.
func NewInspection(now time.Time) Inspection {
	return Inspection{
		Step: StepSearch,
		Details: Details{
			InspectionDate: now.Format(DateLayout),
			InspectionType: InspectionTypeRoutine,
		},
		Rooms:  []Room{},
		Issues: []Issue{},
	}
}

// HasListing returns true if a property has been selected.
func (i *Inspection) HasListing() bool {
	return i.Listing != nil
}

// FindRoom returns the index of the room with the given id, or -1.
func (i *Inspection) FindRoom(id string) int {
	for idx := range i.Rooms {
		if i.Rooms[idx].ID == id {
			return idx
		}
	}
	return -1
}

// FindIssue returns the index of the issue with the given id, or -1.
func (i *Inspection) FindIssue(id string) int {
	for idx := range i.Issues {
		if i.Issues[idx].ID == id {
			return idx
		}
	}
	return -1
}

// Clone returns a deep copy. Nil and empty slices are preserved as such.
func (i Inspection) Clone() Inspection {
	out := i
	if i.Listing != nil {
		l := *i.Listing
		if i.Listing.Rooms != nil {
			l.Rooms = append(make([]ListingRoom, 0, len(i.Listing.Rooms)), i.Listing.Rooms...)
		}
		out.Listing = &l
	}
	if i.Tenancy != nil {
		t := *i.Tenancy
		out.Tenancy = &t
	}
	if i.Rooms != nil {
		out.Rooms = make([]Room, len(i.Rooms))
		for idx, r := range i.Rooms {
			if r.Condition != nil {
				c := *r.Condition
				r.Condition = &c
			}
			r.Photos = clonePhotos(r.Photos)
			out.Rooms[idx] = r
		}
	}
	if i.Issues != nil {
		out.Issues = make([]Issue, len(i.Issues))
		for idx, is := range i.Issues {
			is.Photos = clonePhotos(is.Photos)
			out.Issues[idx] = is
		}
	}
	out.Utilities = i.Utilities.clone()
	if i.SubmissionResult != nil {
		r := *i.SubmissionResult
		out.SubmissionResult = &r
	}
	return out
}

func clonePhotos(p []Photo) []Photo {
	if p == nil {
		return nil
	}
	return append(make([]Photo, 0, len(p)), p...)
}

func (u Utilities) clone() Utilities {
	out := u
	out.Gas = u.Gas.clone()
	out.Electric = u.Electric.clone()
	out.Water = u.Water.clone()
	if u.SmokeAlarmTested != nil {
		v := *u.SmokeAlarmTested
		out.SmokeAlarmTested = &v
	}
	if u.COAlarmTested != nil {
		v := *u.COAlarmTested
		out.COAlarmTested = &v
	}
	return out
}

func (m Meter) clone() Meter {
	if m.Photo != nil {
		p := *m.Photo
		m.Photo = &p
	}
	return m
}

// =============================================================================
// Summary
// =============================================================================

// Stats summarises an inspection for the review step.
type Stats struct {
	Rooms         int `json:"rooms"`
	AssessedRooms int `json:"assessedRooms"`
	Photos        int `json:"photos"` // room and issue photos
	Issues        int `json:"issues"`
}

// Stats returns counts shown on the review step.
func (i *Inspection) Stats() Stats {
	s := Stats{Rooms: len(i.Rooms), Issues: len(i.Issues)}
	for _, r := range i.Rooms {
		if r.IsAssessed() {
			s.AssessedRooms++
		}
		s.Photos += len(r.Photos)
	}
	for _, is := range i.Issues {
		s.Photos += len(is.Photos)
	}
	return s
}
