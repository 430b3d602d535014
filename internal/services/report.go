package services

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"golang.org/x/text/encoding/charmap"

	"alfredoptarigan/cv-screener/internal/models"
)

const placeholder = "N/A"

type ReportInput struct {
	Result      models.ScoreResult
	Role        models.Role
	Unit        string
	Filename    string
	GeneratedAt time.Time
}

type ReportRenderer interface {
	Render(in ReportInput) ([]byte, error)
}

type pdfReportRenderer struct {
	title string
}

func NewReportRenderer() ReportRenderer {
	return &pdfReportRenderer{title: "Curriculum Evaluation Report"}
}

type rgb struct{ r, g, b int }

var bandColors = map[models.Band]rgb{
	models.BandAdvance:         {46, 125, 50},
	models.BandNeedsReferences: {239, 160, 20},
	models.BandNotRecommended:  {198, 40, 40},
}

// Render implements ReportRenderer. Text outside Windows-1252 is replaced
// with '?' and empty fields render a placeholder.
func (p *pdfReportRenderer) Render(in ReportInput) ([]byte, error) {
	generated := in.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}
	res := in.Result

	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(15, 20, 15)
	doc.SetAutoPageBreak(true, 20)
	doc.AliasNbPages("")
	doc.SetTitle(cp1252(p.title), false)

	doc.SetHeaderFunc(func() {
		doc.SetFont("Helvetica", "B", 12)
		doc.CellFormat(0, 10, cp1252(p.title), "", 1, "C", false, 0, "")
		y := doc.GetY()
		doc.Line(15, y, 195, y)
		doc.Ln(4)
	})
	doc.SetFooterFunc(func() {
		doc.SetY(-15)
		doc.SetFont("Helvetica", "I", 8)
		footer := fmt.Sprintf("Generated %s - Page %d of {nb}", generated.Format("02/01/2006"), doc.PageNo())
		doc.CellFormat(0, 10, footer, "", 0, "C", false, 0, "")
	})
	doc.AddPage()

	// Title block
	doc.SetFont("Helvetica", "B", 14)
	doc.CellFormat(0, 9, cp1252("Candidate: "+orPlaceholder(res.CandidateName)), "", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 10)
	doc.CellFormat(0, 6, cp1252(fmt.Sprintf("Role: %s | Unit: %s", orPlaceholder(in.Role.Label()), orPlaceholder(in.Unit))), "", 1, "L", false, 0, "")
	if in.Filename != "" {
		doc.CellFormat(0, 6, cp1252("Source file: "+in.Filename), "", 1, "L", false, 0, "")
	}
	doc.Ln(4)

	// Executive summary with the band badge
	band := res.Band
	if band == "" {
		band = models.BandFor(res.Composite)
	}
	c, ok := bandColors[band]
	if !ok {
		c = rgb{120, 120, 120}
	}
	doc.SetFillColor(c.r, c.g, c.b)
	doc.SetTextColor(255, 255, 255)
	doc.SetFont("Helvetica", "B", 12)
	doc.CellFormat(90, 10, cp1252(string(band)), "", 0, "C", true, 0, "")
	doc.SetTextColor(0, 0, 0)
	doc.CellFormat(0, 10, fmt.Sprintf("  Score: %.2f / 5.00", res.Composite), "", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "I", 10)
	doc.CellFormat(0, 7, cp1252("Overall fit: "+orPlaceholder(string(res.FitLevel))), "", 1, "L", false, 0, "")
	doc.Ln(2)

	doc.SetFont("Helvetica", "B", 11)
	doc.CellFormat(0, 8, "Executive summary", "", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 10)
	doc.MultiCell(0, 5, cp1252(orPlaceholder(res.Summary)), "", "L", false)
	doc.Ln(4)

	// Dimension table
	doc.SetFillColor(235, 235, 235)
	doc.SetFont("Helvetica", "B", 10)
	for _, h := range []struct {
		label string
		w     float64
	}{{"Dimension", 75}, {"Weight", 35}, {"Score", 35}, {"Weighted", 35}} {
		doc.CellFormat(h.w, 8, h.label, "1", 0, "C", true, 0, "")
	}
	doc.Ln(-1)
	doc.SetFont("Helvetica", "", 10)
	for _, d := range res.SubScores.Dimensions() {
		doc.CellFormat(75, 8, d.Name, "1", 0, "L", false, 0, "")
		doc.CellFormat(35, 8, fmt.Sprintf("%.0f%%", d.Weight*100), "1", 0, "C", false, 0, "")
		doc.CellFormat(35, 8, fmt.Sprintf("%.1f", d.Score), "1", 0, "C", false, 0, "")
		doc.CellFormat(35, 8, fmt.Sprintf("%.2f", d.Weighted()), "1", 1, "C", false, 0, "")
	}
	doc.SetFont("Helvetica", "B", 10)
	doc.CellFormat(145, 8, "Total", "1", 0, "R", true, 0, "")
	doc.CellFormat(35, 8, fmt.Sprintf("%.2f", res.Composite), "1", 1, "C", true, 0, "")
	doc.Ln(4)

	writeBullets(doc, "Strengths", res.Strengths)
	writeBullets(doc, "Gaps", res.Gaps)
	writeBullets(doc, "Risks", res.Risks)

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}
	return buf.Bytes(), nil
}

func writeBullets(doc *fpdf.Fpdf, title string, items []string) {
	doc.SetFont("Helvetica", "B", 11)
	doc.CellFormat(0, 8, title, "", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 10)
	if len(items) == 0 {
		doc.MultiCell(0, 5, "None reported", "", "L", false)
	}
	for _, item := range items {
		doc.MultiCell(0, 5, cp1252("- "+item), "", "L", false)
	}
	doc.Ln(2)
}

func orPlaceholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return placeholder
	}
	return s
}

// cp1252 encodes s for the core PDF fonts.
func cp1252(s string) string {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		b, ok := charmap.Windows1252.EncodeRune(r)
		if !ok {
			b = '?'
		}
		out = append(out, b)
	}
	return string(out)
}
