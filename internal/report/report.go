// Package report renders inspection reports.
//
// The Generator interface is implemented by PDFGenerator. Colours and text
// helpers shared by report layouts live here.
package report

import (
	"context"
	"io"
	"time"

	"github.com/DukeRupert/walkthrough/internal/domain"
)

// =============================================================================
// Generator Interface
// =============================================================================

// Generator defines the interface for report generators.
type Generator interface {
	// Generate renders the inspection and writes it to w. It returns the
	// number of bytes written. The inspection is not modified.
	Generate(ctx context.Context, inspection *domain.Inspection, w io.Writer) (int64, error)

	// Format returns the output format of this generator.
	Format() domain.ReportFormat
}

// =============================================================================
// Colors
// =============================================================================

// BrandColors defines the palette for reports.
var BrandColors = struct {
	DarkBlue  string // headings
	TextDark  string
	TextMuted string
	Border    string
}{
	DarkBlue:  "#1E3A5F",
	TextDark:  "#000000",
	TextMuted: "#6B7280",
	Border:    "#E5E7EB",
}

// ConditionColors maps room conditions to badge colours.
var ConditionColors = map[domain.Condition]string{
	domain.ConditionGood: "#22C55E",
	domain.ConditionFair: "#F59E0B",
	domain.ConditionPoor: "#EF4444",
	domain.ConditionNA:   "#9CA3AF",
}

// ConditionColor returns the badge colour for a room condition. Rooms that
// have not been assessed use the N/A colour.
func ConditionColor(c *domain.Condition) string {
	if c != nil {
		if color, ok := ConditionColors[*c]; ok {
			return color
		}
	}
	return ConditionColors[domain.ConditionNA]
}

// ConditionLabel returns the badge label for a room condition.
func ConditionLabel(c *domain.Condition) string {
	if c == nil {
		return "Unknown"
	}
	return c.Label()
}

// PriorityColors maps issue priorities to badge colours.
var PriorityColors = map[domain.Priority]string{
	domain.PriorityLow:    "#3B82F6", // Blue-500
	domain.PriorityMedium: "#EAB308", // Yellow-500
	domain.PriorityHigh:   "#F97316", // Orange-500
	domain.PriorityUrgent: "#EF4444", // Red-500
}

// PriorityColor returns the badge colour for a priority.
func PriorityColor(p domain.Priority) string {
	if color, ok := PriorityColors[p]; ok {
		return color
	}
	return BrandColors.TextMuted
}

// =============================================================================
// Color Conversion Helpers
// =============================================================================

// HexToRGB converts a hex color string to RGB values.
// Input format: "#RRGGBB" or "RRGGBB"
func HexToRGB(hex string) (r, g, b int) {
	if len(hex) > 0 && hex[0] == '#' {
		hex = hex[1:]
	}
	if len(hex) != 6 {
		return 0, 0, 0
	}

	r = hexToDec(hex[0:2])
	g = hexToDec(hex[2:4])
	b = hexToDec(hex[4:6])
	return
}

func hexToDec(hex string) int {
	val := 0
	for _, c := range hex {
		val *= 16
		switch {
		case c >= '0' && c <= '9':
			val += int(c - '0')
		case c >= 'a' && c <= 'f':
			val += int(c - 'a' + 10)
		case c >= 'A' && c <= 'F':
			val += int(c - 'A' + 10)
		}
	}
	return val
}

// =============================================================================
// Text Formatting Helpers
// =============================================================================

// FormatInspectionDate formats a YYYY-MM-DD date for display. Values that do
// not parse are returned unchanged.
func FormatInspectionDate(date string) string {
	t, err := time.Parse(domain.DateLayout, date)
	if err != nil {
		return date
	}
	return t.Format("January 2, 2006")
}

// FormatDateTime formats a datetime for display in reports.
func FormatDateTime(t time.Time) string {
	return t.Format("January 2, 2006 at 3:04 PM")
}

// orNA returns s, or "N/A" when s is empty.
func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func yesNo(b *bool) string {
	if b != nil && *b {
		return "Yes"
	}
	return "No"
}
