package wizard

import (
	"github.com/DukeRupert/walkthrough/internal/domain"
)

// ValidateStep checks that the current step's data allows moving forward.
func ValidateStep(i *domain.Inspection) error {
	const op = "wizard.validate"

	switch i.Step {
	case domain.StepSearch:
		if !i.HasListing() {
			return &domain.ValidationError{
				Op:      op,
				Message: "Please select a property",
				Fields:  map[string]string{"listing": "Property is required"},
			}
		}

	case domain.StepDetails:
		ve := &domain.ValidationError{Op: op, Message: "Please fill in all required fields", Fields: map[string]string{}}
		if i.Details.InspectorName == "" {
			ve.Fields["inspectorName"] = "Inspector name is required"
		}
		if i.Details.InspectionDate == "" {
			ve.Fields["inspectionDate"] = "Inspection date is required"
		}
		if len(ve.Fields) > 0 {
			return ve
		}

	case domain.StepRooms:
		ve := &domain.ValidationError{Op: op, Message: "Please assess all rooms before continuing", Fields: map[string]string{}}
		for _, r := range i.Rooms {
			if !r.IsAssessed() {
				ve.Fields["rooms."+r.ID] = r.Name + " has not been assessed"
			}
		}
		if len(ve.Fields) > 0 {
			return ve
		}
	}

	return nil
}
