package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/DukeRupert/walkthrough/internal/domain"
)

// =============================================================================
// PDF Generator
// =============================================================================

// PDFGenerator renders inspections as A4 PDF documents.
type PDFGenerator struct {
	// Page dimensions (A4 in mm)
	pageWidth  float64
	pageHeight float64
	margin     float64

	contentWidth float64

	logger *slog.Logger
	now    func() time.Time
}

// NewPDFGenerator creates a new PDF generator with default settings.
func NewPDFGenerator(logger *slog.Logger) *PDFGenerator {
	margin := 20.0
	pageWidth := 210.0
	return &PDFGenerator{
		pageWidth:    pageWidth,
		pageHeight:   297.0,
		margin:       margin,
		contentWidth: pageWidth - (2 * margin),
		logger:       logger,
		now:          time.Now,
	}
}

// Format returns the output format of this generator.
func (g *PDFGenerator) Format() domain.ReportFormat {
	return domain.ReportFormatPDF
}

// pdfDoc carries the document and the current vertical position while a
// report is laid out.
type pdfDoc struct {
	*fpdf.Fpdf
	y      float64
	images int
}

// Generate creates a PDF report and writes it to the provided writer.
func (g *PDFGenerator) Generate(ctx context.Context, inspection *domain.Inspection, w io.Writer) (int64, error) {
	if inspection == nil {
		return 0, fmt.Errorf("pdf generation error: no inspection")
	}

	pdf := &pdfDoc{Fpdf: fpdf.New("P", "mm", "A4", "")}
	generatedAt := g.now()

	pdf.SetTitle("Property Inspection Report - "+inspection.Listing.Address(), true)
	pdf.SetAuthor(inspection.Details.InspectorName, true)
	pdf.SetCreator("Walkthrough", true)

	// Layout tracks its own position and breaks pages explicitly.
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetFooterFunc(func() {
		g.addFooter(pdf, generatedAt)
	})

	g.addCover(pdf, inspection)
	for i := range inspection.Rooms {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		g.addRoom(pdf, &inspection.Rooms[i])
	}
	g.addUtilities(pdf, &inspection.Utilities)
	if len(inspection.Issues) > 0 {
		g.addIssues(pdf, inspection.Issues)
	}

	if err := pdf.Error(); err != nil {
		return 0, fmt.Errorf("pdf generation error: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return 0, fmt.Errorf("pdf output error: %w", err)
	}

	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

// =============================================================================
// Cover
// =============================================================================

func (g *PDFGenerator) addCover(pdf *pdfDoc, inspection *domain.Inspection) {
	pdf.AddPage()
	pdf.y = g.margin

	r, gr, b := HexToRGB(BrandColors.DarkBlue)
	pdf.SetTextColor(r, gr, b)
	pdf.SetFont("Helvetica", "B", 32)
	pdf.SetXY(g.margin, pdf.y)
	pdf.CellFormat(g.contentWidth, 12, "PROPERTY INSPECTION", "", 2, "C", false, 0, "")
	pdf.CellFormat(g.contentWidth, 12, "REPORT", "", 2, "C", false, 0, "")
	pdf.y += 40

	reference := ""
	if inspection.Listing != nil {
		reference = inspection.Listing.Reference
	}

	rows := [][2]string{
		{"Property Address:", inspection.Listing.Address()},
		{"Reference:", orNA(reference)},
		{"Inspection Date:", FormatInspectionDate(inspection.Details.InspectionDate)},
		{"Agent:", orNA(inspection.Details.InspectorName)},
		{"Type:", inspectionTypeLabel(inspection.Details.InspectionType)},
	}

	pdf.SetFontSize(11)
	g.addRows(pdf, rows, 50, 8)
	pdf.y += 10
}

func inspectionTypeLabel(t domain.InspectionType) string {
	if t == "" {
		return "Routine"
	}
	return cases.Title(language.English).String(string(t))
}

// =============================================================================
// Rooms
// =============================================================================

const (
	photosPerRow = 2
	photoHeight  = 30.0
	photoGap     = 5.0
)

func (g *PDFGenerator) addRoom(pdf *pdfDoc, room *domain.Room) {
	g.breakIfBelow(pdf, g.pageHeight-40)

	g.heading(pdf, room.Name)

	// Condition badge
	r, gr, b := HexToRGB(ConditionColor(room.Condition))
	pdf.SetFillColor(r, gr, b)
	pdf.Rect(g.margin, pdf.y-4, 30, 6, "F")
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetXY(g.margin, pdf.y-4)
	pdf.CellFormat(30, 6, ConditionLabel(room.Condition), "", 0, "C", false, 0, "")
	pdf.y += 10

	if room.Notes != "" {
		g.paragraph(pdf, room.Notes, 10)
	}

	if len(room.Photos) > 0 {
		g.addPhotoGrid(pdf, room)
	}

	pdf.y += 10
}

func (g *PDFGenerator) addPhotoGrid(pdf *pdfDoc, room *domain.Room) {
	pdf.y += 5
	cellWidth := g.contentWidth / photosPerRow

	col := 0
	for i, photo := range room.Photos {
		if col == 0 && pdf.y+photoHeight > g.pageHeight-20 {
			g.newPage(pdf)
		}

		data, _, _, err := preparePhoto(photo)
		if err != nil {
			g.logger.Warn("Skipping photo in report", "room", room.Name, "photo", i, "error", err)
			continue
		}

		pdf.images++
		name := fmt.Sprintf("photo-%d", pdf.images)
		opts := fpdf.ImageOptions{ImageType: "JPG"}
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))

		x := g.margin + float64(col)*cellWidth
		pdf.ImageOptions(name, x, pdf.y, cellWidth-photoGap, photoHeight, false, opts, 0, "")

		col++
		if col == photosPerRow {
			col = 0
			pdf.y += photoHeight + photoGap
		}
	}
	if col != 0 {
		pdf.y += photoHeight + photoGap
	}
	pdf.y += 5
}

// =============================================================================
// Utilities & Safety
// =============================================================================

func (g *PDFGenerator) addUtilities(pdf *pdfDoc, u *domain.Utilities) {
	g.breakIfBelow(pdf, g.pageHeight-60)
	g.heading(pdf, "Utilities & Safety")
	pdf.y += 2

	rows := [][2]string{
		{"Gas Meter:", orNA(u.Gas.Reading)},
		{"Electric Meter:", orNA(u.Electric.Reading)},
		{"Water Meter:", orNA(u.Water.Reading)},
		{"Smoke Alarm Tested:", yesNo(u.SmokeAlarmTested)},
		{"CO Alarm Tested:", yesNo(u.COAlarmTested)},
		{"Keys Present:", orNA(u.KeysPresent)},
	}

	pdf.SetFontSize(10)
	g.addRows(pdf, rows, 60, 7)
	pdf.y += 5
}

// =============================================================================
// Maintenance Issues
// =============================================================================

func (g *PDFGenerator) addIssues(pdf *pdfDoc, issues []domain.Issue) {
	g.breakIfBelow(pdf, g.pageHeight-60)
	g.heading(pdf, "Maintenance Issues")
	pdf.y += 2

	for _, issue := range issues {
		g.breakIfBelow(pdf, g.pageHeight-40)

		label := issue.Room
		if label == "" {
			label = "Unlabeled"
		}
		g.textColor(pdf, BrandColors.TextDark)
		pdf.SetFont("Helvetica", "B", 10)
		pdf.Text(g.margin, pdf.y, label)

		// Priority badge
		r, gr, b := HexToRGB(PriorityColor(issue.Priority))
		pdf.SetFillColor(r, gr, b)
		pdf.Rect(100, pdf.y-3, 20, 5, "F")
		pdf.SetTextColor(255, 255, 255)
		pdf.SetFont("Helvetica", "B", 7)
		pdf.SetXY(100, pdf.y-3)
		pdf.CellFormat(20, 5, strings.ToUpper(string(issue.Priority)), "", 0, "C", false, 0, "")
		pdf.y += 7

		if issue.Description != "" {
			g.paragraph(pdf, issue.Description, 9)
		}
		pdf.y += 5
	}
}

// =============================================================================
// Helper Methods
// =============================================================================

func (g *PDFGenerator) newPage(pdf *pdfDoc) {
	pdf.AddPage()
	pdf.y = g.margin
}

// breakIfBelow starts a new page when the cursor is past limit.
func (g *PDFGenerator) breakIfBelow(pdf *pdfDoc, limit float64) {
	if pdf.y > limit {
		g.newPage(pdf)
	}
}

func (g *PDFGenerator) textColor(pdf *pdfDoc, hex string) {
	r, gr, b := HexToRGB(hex)
	pdf.SetTextColor(r, gr, b)
}

func (g *PDFGenerator) heading(pdf *pdfDoc, title string) {
	g.textColor(pdf, BrandColors.DarkBlue)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.Text(g.margin, pdf.y, title)
	pdf.y += 10
}

// paragraph writes text wrapped to the content width, breaking pages
// between lines.
func (g *PDFGenerator) paragraph(pdf *pdfDoc, text string, size float64) {
	g.textColor(pdf, BrandColors.TextDark)
	pdf.SetFont("Helvetica", "", size)
	for _, line := range pdf.SplitText(text, g.contentWidth) {
		g.breakIfBelow(pdf, g.pageHeight-40)
		pdf.Text(g.margin, pdf.y, line)
		pdf.y += 5
	}
}

// addRows writes bold labels with values at valueX, step mm apart. The
// caller sets the font size.
func (g *PDFGenerator) addRows(pdf *pdfDoc, rows [][2]string, valueX, step float64) {
	g.textColor(pdf, BrandColors.TextDark)
	size, _ := pdf.GetFontSize()
	for _, row := range rows {
		g.breakIfBelow(pdf, g.pageHeight-20)
		pdf.SetFont("Helvetica", "B", size)
		pdf.Text(g.margin, pdf.y, row[0])
		pdf.SetFont("Helvetica", "", size)
		pdf.Text(valueX, pdf.y, row[1])
		pdf.y += step
	}
}

func (g *PDFGenerator) addFooter(pdf *pdfDoc, generatedAt time.Time) {
	y := g.pageHeight - 12

	r, gr, b := HexToRGB(BrandColors.Border)
	pdf.SetDrawColor(r, gr, b)
	pdf.Line(g.margin, y-3, g.pageWidth-g.margin, y-3)

	g.textColor(pdf, BrandColors.TextMuted)
	pdf.SetFont("Helvetica", "", 8)

	pdf.SetXY(g.margin, y)
	pdf.Cell(0, 6, "Generated: "+FormatDateTime(generatedAt))

	pdf.SetXY(g.pageWidth-g.margin-30, y)
	pdf.CellFormat(30, 6, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "R", false, 0, "")
}
