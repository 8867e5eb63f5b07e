package wizard

import (
	"time"

	"github.com/DukeRupert/walkthrough/internal/domain"
)

const (
	customRoomPrefix = "custom-"
	issuePrefix      = "issue-"
)

// Env supplies the non-deterministic inputs of a transition.
type Env struct {
	Now   func() time.Time
	NewID func() string
}

// Apply returns the state after action. state is not modified. Actions that
// reference an unknown room or issue id leave the state unchanged.
func Apply(state domain.Inspection, action Action, env Env) domain.Inspection {
	next := state.Clone()

	switch a := action.(type) {
	case SetStep:
		if a.Step.IsValid() {
			next.Step = a.Step
		}

	case SelectListing:
		next.Listing = nil
		next.Rooms = []domain.Room{}
		if a.Listing != nil {
			l := *a.Listing
			l.Rooms = append([]domain.ListingRoom(nil), a.Listing.Rooms...)
			next.Listing = &l
			for _, r := range l.Rooms {
				next.Rooms = append(next.Rooms, domain.Room{
					ID:     r.ID.String(),
					Name:   r.Name,
					Photos: []domain.Photo{},
				})
			}
		}

	case SelectTenancy:
		next.Tenancy = nil
		if a.Tenancy != nil {
			t := *a.Tenancy
			next.Tenancy = &t
		}

	case UpdateDetails:
		applyDetails(&next.Details, a.Patch)

	case UpdateRoom:
		idx := next.FindRoom(a.RoomID)
		if idx < 0 {
			return next
		}
		applyRoom(&next.Rooms[idx], a.Patch)

	case AddRoom:
		next.Rooms = append(next.Rooms, domain.Room{
			ID:     customRoomPrefix + env.NewID(),
			Name:   a.Name,
			Photos: []domain.Photo{},
		})

	case RemoveRoom:
		if idx := next.FindRoom(a.RoomID); idx >= 0 {
			next.Rooms = append(next.Rooms[:idx], next.Rooms[idx+1:]...)
		}

	case AddRoomPhotos:
		if idx := next.FindRoom(a.RoomID); idx >= 0 {
			next.Rooms[idx].Photos = append(next.Rooms[idx].Photos, a.Photos...)
		}

	case RemoveRoomPhoto:
		if idx := next.FindRoom(a.RoomID); idx >= 0 {
			next.Rooms[idx].Photos = removePhoto(next.Rooms[idx].Photos, a.Index)
		}

	case UpdateUtilities:
		applyUtilities(&next.Utilities, a.Patch)

	case AddIssue:
		next.Issues = append(next.Issues, domain.Issue{
			ID:       issuePrefix + env.NewID(),
			Priority: domain.PriorityMedium,
			Photos:   []domain.Photo{},
		})

	case UpdateIssue:
		idx := next.FindIssue(a.IssueID)
		if idx < 0 {
			return next
		}
		applyIssue(&next.Issues[idx], a.Patch)

	case RemoveIssue:
		if idx := next.FindIssue(a.IssueID); idx >= 0 {
			next.Issues = append(next.Issues[:idx], next.Issues[idx+1:]...)
		}

	case AddIssuePhotos:
		if idx := next.FindIssue(a.IssueID); idx >= 0 {
			next.Issues[idx].Photos = append(next.Issues[idx].Photos, a.Photos...)
		}

	case RemoveIssuePhoto:
		if idx := next.FindIssue(a.IssueID); idx >= 0 {
			next.Issues[idx].Photos = removePhoto(next.Issues[idx].Photos, a.Index)
		}

	case MarkSubmitted:
		r := a.Result
		next.Submitted = true
		next.SubmissionResult = &r

	case Reset:
		next = domain.NewInspection(env.Now())
		next.Details.InspectorName = a.InspectorName
	}

	return next
}

func applyDetails(d *domain.Details, p DetailsPatch) {
	if p.InspectorName != nil {
		d.InspectorName = *p.InspectorName
	}
	if p.InspectionDate != nil {
		d.InspectionDate = *p.InspectionDate
	}
	if p.InspectionType != nil {
		d.InspectionType = *p.InspectionType
	}
	if p.Notes != nil {
		d.Notes = *p.Notes
	}
	if p.NotifyTenants != nil {
		d.NotifyTenants = *p.NotifyTenants
	}
}

func applyRoom(r *domain.Room, p RoomPatch) {
	if p.Name != nil {
		r.Name = *p.Name
	}
	if p.Condition != nil {
		c := *p.Condition
		r.Condition = &c
	}
	if p.Notes != nil {
		r.Notes = *p.Notes
	}
	if p.Photos != nil {
		r.Photos = append([]domain.Photo{}, (*p.Photos)...)
	}
}

func applyUtilities(u *domain.Utilities, p UtilitiesPatch) {
	if p.Gas != nil {
		u.Gas = copyMeter(*p.Gas)
	}
	if p.Electric != nil {
		u.Electric = copyMeter(*p.Electric)
	}
	if p.Water != nil {
		u.Water = copyMeter(*p.Water)
	}
	if p.SmokeAlarmTested != nil {
		u.SmokeAlarmTested = Bool(*p.SmokeAlarmTested)
	}
	if p.COAlarmTested != nil {
		u.COAlarmTested = Bool(*p.COAlarmTested)
	}
	if p.KeysPresent != nil {
		u.KeysPresent = *p.KeysPresent
	}
}

func applyIssue(is *domain.Issue, p IssuePatch) {
	if p.Room != nil {
		is.Room = *p.Room
	}
	if p.Description != nil {
		is.Description = *p.Description
	}
	if p.Priority != nil {
		is.Priority = *p.Priority
	}
	if p.Photos != nil {
		is.Photos = append([]domain.Photo{}, (*p.Photos)...)
	}
}

// removePhoto drops photos[i]. Out-of-range positions leave photos as is.
func removePhoto(photos []domain.Photo, i int) []domain.Photo {
	if i < 0 || i >= len(photos) {
		return photos
	}
	return append(photos[:i], photos[i+1:]...)
}

func copyMeter(m domain.Meter) domain.Meter {
	if m.Photo != nil {
		p := *m.Photo
		m.Photo = &p
	}
	return m
}
