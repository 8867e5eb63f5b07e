package report

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/DukeRupert/walkthrough/internal/domain"
)

func TestHexToRGB(t *testing.T) {
	tests := []struct {
		hex     string
		r, g, b int
	}{
		{"#1E3A5F", 30, 58, 95},
		{"22c55e", 34, 197, 94},
		{"#fff", 0, 0, 0},
		{"", 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.hex, func(t *testing.T) {
			r, g, b := HexToRGB(tt.hex)
			assert.Equal(t, []int{tt.r, tt.g, tt.b}, []int{r, g, b})
		})
	}
}

func TestConditionBadge(t *testing.T) {
	good := domain.ConditionGood
	odd := domain.Condition("odd")

	assert.Equal(t, "#22C55E", ConditionColor(&good))
	assert.Equal(t, "Good", ConditionLabel(&good))
	assert.Equal(t, "#9CA3AF", ConditionColor(nil))
	assert.Equal(t, "Unknown", ConditionLabel(nil))
	assert.Equal(t, "#9CA3AF", ConditionColor(&odd))
	assert.Equal(t, "Unknown", ConditionLabel(&odd))
}

func TestPriorityColor(t *testing.T) {
	assert.Equal(t, "#3B82F6", PriorityColor(domain.PriorityLow))
	assert.Equal(t, "#EAB308", PriorityColor(domain.PriorityMedium))
	assert.Equal(t, "#F97316", PriorityColor(domain.PriorityHigh))
	assert.Equal(t, "#EF4444", PriorityColor(domain.PriorityUrgent))
	assert.Equal(t, "#6B7280", PriorityColor("other"))
}

func TestFormatInspectionDate(t *testing.T) {
	assert.Equal(t, "March 14, 2026", FormatInspectionDate("2026-03-14"))
	assert.Equal(t, "soon", FormatInspectionDate("soon"))
}

func TestInspectionTypeLabel(t *testing.T) {
	assert.Equal(t, "Checkout", inspectionTypeLabel(domain.InspectionTypeCheckOut))
	assert.Equal(t, "Routine", inspectionTypeLabel(""))
}
