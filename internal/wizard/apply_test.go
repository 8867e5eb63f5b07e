package wizard

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/walkthrough/internal/domain"
)

func testEnv() Env {
	n := 0
	return Env{
		Now: func() time.Time { return time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC) },
		NewID: func() string {
			n++
			return fmt.Sprintf("id%d", n)
		},
	}
}

func listing() *domain.Listing {
	return &domain.Listing{
		ID:             "42",
		DisplayAddress: "7 Canal Wharf, Leeds",
		Rooms: []domain.ListingRoom{
			{ID: "101", Name: "Kitchen"},
			{ID: "102", Name: "Bedroom 1"},
		},
	}
}

func TestApply_SelectListingSeedsRooms(t *testing.T) {
	env := testEnv()
	state := domain.NewInspection(env.Now())
	state.Rooms = []domain.Room{{ID: "old", Name: "Garage", Condition: domain.ConditionPtr(domain.ConditionPoor)}}

	next := Apply(state, SelectListing{Listing: listing()}, env)

	require.Len(t, next.Rooms, 2)
	assert.Equal(t, "101", next.Rooms[0].ID)
	assert.Equal(t, "Kitchen", next.Rooms[0].Name)
	assert.Nil(t, next.Rooms[0].Condition)
	assert.Empty(t, next.Rooms[0].Notes)
	assert.Empty(t, next.Rooms[0].Photos)
	assert.Equal(t, "102", next.Rooms[1].ID)
	assert.Equal(t, domain.ExternalID("42"), next.Listing.ID)

	assert.Len(t, state.Rooms, 1, "input state is not modified")
}

func TestApply_SelectListingWithoutRooms(t *testing.T) {
	env := testEnv()
	next := Apply(domain.NewInspection(env.Now()), SelectListing{Listing: &domain.Listing{ID: "9"}}, env)

	assert.NotNil(t, next.Rooms)
	assert.Empty(t, next.Rooms)
}

func TestApply_SetStep(t *testing.T) {
	env := testEnv()
	state := domain.NewInspection(env.Now())

	tests := []struct {
		name string
		step domain.Step
		want domain.Step
	}{
		{"forward", domain.StepUtilities, domain.StepUtilities},
		{"complete", domain.StepComplete, domain.StepComplete},
		{"zero ignored", 0, domain.StepSearch},
		{"past end ignored", 8, domain.StepSearch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := Apply(state, SetStep{Step: tt.step}, env)
			assert.Equal(t, tt.want, next.Step)
		})
	}
}

func TestApply_UpdateDetailsMerges(t *testing.T) {
	env := testEnv()
	state := domain.NewInspection(env.Now())
	state.Details.Notes = "gate code 1234"

	checkout := domain.InspectionTypeCheckOut
	next := Apply(state, UpdateDetails{Patch: DetailsPatch{
		InspectorName:  String("Dana"),
		InspectionType: &checkout,
	}}, env)

	assert.Equal(t, "Dana", next.Details.InspectorName)
	assert.Equal(t, checkout, next.Details.InspectionType)
	assert.Equal(t, "gate code 1234", next.Details.Notes)
	assert.Equal(t, "2026-06-01", next.Details.InspectionDate)
}

func TestApply_RoomLifecycle(t *testing.T) {
	env := testEnv()
	state := Apply(domain.NewInspection(env.Now()), SelectListing{Listing: listing()}, env)

	state = Apply(state, AddRoom{Name: "Loft"}, env)
	require.Len(t, state.Rooms, 3)
	assert.Equal(t, "custom-id1", state.Rooms[2].ID)
	assert.Equal(t, "Loft", state.Rooms[2].Name)
	assert.Nil(t, state.Rooms[2].Condition)

	state = Apply(state, UpdateRoom{RoomID: "101", Patch: RoomPatch{
		Condition: domain.ConditionPtr(domain.ConditionGood),
		Notes:     String("new worktops"),
	}}, env)
	assert.Equal(t, domain.ConditionGood, *state.Rooms[0].Condition)
	assert.Equal(t, "new worktops", state.Rooms[0].Notes)
	assert.Nil(t, state.Rooms[1].Condition, "other rooms untouched")

	photos := []domain.Photo{"data:image/jpeg;base64,AA=="}
	state = Apply(state, UpdateRoom{RoomID: "101", Patch: RoomPatch{Photos: &photos}}, env)
	assert.Equal(t, photos, state.Rooms[0].Photos)
	assert.Equal(t, "new worktops", state.Rooms[0].Notes, "photos patch keeps notes")

	state = Apply(state, RemoveRoom{RoomID: "102"}, env)
	require.Len(t, state.Rooms, 2)
	assert.Equal(t, []string{"101", "custom-id1"}, []string{state.Rooms[0].ID, state.Rooms[1].ID})
}

func TestApply_UnknownIDsAreNoOps(t *testing.T) {
	env := testEnv()
	state := Apply(domain.NewInspection(env.Now()), SelectListing{Listing: listing()}, env)
	state = Apply(state, AddIssue{}, env)

	actions := []Action{
		UpdateRoom{RoomID: "missing", Patch: RoomPatch{Notes: String("x")}},
		RemoveRoom{RoomID: "missing"},
		UpdateIssue{IssueID: "missing", Patch: IssuePatch{Description: String("x")}},
		RemoveIssue{IssueID: "missing"},
		AddRoomPhotos{RoomID: "missing", Photos: []domain.Photo{"data:image/png;base64,AA=="}},
		RemoveRoomPhoto{RoomID: "101", Index: 3},
		AddIssuePhotos{IssueID: "missing", Photos: []domain.Photo{"data:image/png;base64,AA=="}},
		RemoveIssuePhoto{IssueID: "missing", Index: 0},
	}

	for _, a := range actions {
		t.Run(a.Kind(), func(t *testing.T) {
			assert.Equal(t, state, Apply(state, a, env))
		})
	}
}

func TestApply_IssueLifecycle(t *testing.T) {
	env := testEnv()
	state := domain.NewInspection(env.Now())

	state = Apply(state, AddIssue{}, env)
	state = Apply(state, AddIssue{}, env)
	require.Len(t, state.Issues, 2)
	assert.Equal(t, "issue-id1", state.Issues[0].ID)
	assert.Equal(t, "issue-id2", state.Issues[1].ID)
	assert.Equal(t, domain.PriorityMedium, state.Issues[0].Priority)
	assert.Empty(t, state.Issues[0].Room)
	assert.Empty(t, state.Issues[0].Description)

	high := domain.PriorityHigh
	state = Apply(state, UpdateIssue{IssueID: "issue-id2", Patch: IssuePatch{
		Room:        String("Bathroom"),
		Description: String("Leaking trap"),
		Priority:    &high,
	}}, env)
	assert.Equal(t, "Bathroom", state.Issues[1].Room)
	assert.Equal(t, "Leaking trap", state.Issues[1].Description)
	assert.Equal(t, high, state.Issues[1].Priority)

	state = Apply(state, RemoveIssue{IssueID: "issue-id1"}, env)
	require.Len(t, state.Issues, 1)
	assert.Equal(t, "issue-id2", state.Issues[0].ID)
}

func TestApply_UpdateUtilitiesShallowMerge(t *testing.T) {
	env := testEnv()
	state := domain.NewInspection(env.Now())
	photo := domain.Photo("data:image/jpeg;base64,AA==")
	state.Utilities.Gas = domain.Meter{Reading: "100", Photo: &photo}
	state.Utilities.KeysPresent = "2"

	next := Apply(state, UpdateUtilities{Patch: UtilitiesPatch{
		Gas:              &domain.Meter{Reading: "105"},
		SmokeAlarmTested: Bool(true),
	}}, env)

	assert.Equal(t, "105", next.Utilities.Gas.Reading)
	assert.Nil(t, next.Utilities.Gas.Photo, "supplied meter replaces the whole meter")
	assert.True(t, *next.Utilities.SmokeAlarmTested)
	assert.Nil(t, next.Utilities.COAlarmTested)
	assert.Equal(t, "2", next.Utilities.KeysPresent)
}

func TestApply_MarkSubmittedAndReset(t *testing.T) {
	env := testEnv()
	state := Apply(domain.NewInspection(env.Now()), SelectListing{Listing: listing()}, env)

	ts := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	state = Apply(state, MarkSubmitted{Result: domain.SubmissionResult{Success: true, InspectionID: "9001", Timestamp: ts}}, env)
	assert.True(t, state.Submitted)
	require.NotNil(t, state.SubmissionResult)
	assert.Equal(t, domain.ExternalID("9001"), state.SubmissionResult.InspectionID)

	state = Apply(state, Reset{InspectorName: "Kim"}, env)
	want := domain.NewInspection(env.Now())
	want.Details.InspectorName = "Kim"
	assert.Equal(t, want, state)
}
