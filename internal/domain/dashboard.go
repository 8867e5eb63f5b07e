package domain

// InspectionStatus is the numeric status of an inspection record in the
// property management system.
type InspectionStatus int

const (
	InspectionStatusBooked    InspectionStatus = 0
	InspectionStatusCompleted InspectionStatus = 1
	InspectionStatusCancelled InspectionStatus = 2
)

// Label returns the dashboard label for the status.
func (s InspectionStatus) Label() string {
	switch s {
	case InspectionStatusBooked:
		return "Booked"
	case InspectionStatusCompleted:
		return "Completed"
	case InspectionStatusCancelled:
		return "Cancelled"
	}
	return "Unknown"
}

// InspectionRecord is an inspection as returned by the property management
// system's inspection list.
type InspectionRecord struct {
	ID            ExternalID       `json:"id"`
	ListingID     ExternalID       `json:"listingId,omitempty"`
	DtsInspection string           `json:"dtsInspection,omitempty"`
	Status        InspectionStatus `json:"status"`
	Notes         string           `json:"notes,omitempty"`
	Listing       *Listing         `json:"listing,omitempty"`
}

// StatusLabel returns the display label of the record's status.
func (r InspectionRecord) StatusLabel() string {
	return r.Status.Label()
}
