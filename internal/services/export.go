package services

import (
	"archive/zip"
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"gorm.io/datatypes"

	"alfredoptarigan/cv-screener/internal/models"
)

const historySheet = "Evaluations"

var exportHeader = []string{
	"fingerprint", "evaluated_at", "batch_label", "filename", "candidate_name", "unit", "role",
	"composite_score", "band", "fit_level", "summary",
	"formation", "experience", "competencies", "software",
	"gaps", "risks", "strengths",
}

func exportRow(e models.Evaluation) []string {
	return []string{
		e.Fingerprint,
		e.EvaluatedAt.UTC().Format(time.RFC3339),
		e.BatchLabel,
		e.Filename,
		e.CandidateName,
		e.Unit,
		string(e.Role),
		formatScore(e.CompositeScore),
		string(e.Band),
		string(e.FitLevel),
		e.Summary,
		formatScore(e.Formation),
		formatScore(e.Experience),
		formatScore(e.Competencies),
		formatScore(e.Software),
		strings.Join(e.Gaps, "; "),
		strings.Join(e.Risks, "; "),
		strings.Join(e.Strengths, "; "),
	}
}

// WriteCSV writes every record without the raw JSON and PDF blobs.
func WriteCSV(w io.Writer, records []models.Evaluation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, rec := range records {
		if err := cw.Write(exportRow(rec)); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes the same columns as WriteCSV to a single styled sheet.
func WriteXLSX(w io.Writer, records []models.Evaluation) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", historySheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	header := make([]interface{}, len(exportHeader))
	for i, h := range exportHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(historySheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(exportHeader))
	if err := f.SetCellStyle(historySheet, "A1", lastCol+"1", headerStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i, rec := range records {
		row := exportRow(rec)
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		// numeric columns stay numeric in the workbook
		values[7] = rec.CompositeScore
		values[11], values[12], values[13], values[14] = rec.Formation, rec.Experience, rec.Competencies, rec.Software

		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(historySheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	_ = f.SetColWidth(historySheet, "A", "A", 20)
	_ = f.SetColWidth(historySheet, "E", "E", 28)
	_ = f.SetColWidth(historySheet, "K", "K", 60)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ReportFileName is the archive entry name of a record's PDF.
func ReportFileName(e models.Evaluation) string {
	name := strings.Trim(unsafeFileChars.ReplaceAllString(e.CandidateName, "_"), "_")
	if name == "" {
		name = "candidate"
	}
	fp := e.Fingerprint
	if len(fp) > 8 {
		fp = fp[:8]
	}
	return fmt.Sprintf("%s_%s.pdf", name, fp)
}

// WriteReportsZip archives the stored PDF of every record that has one and
// returns how many were written.
func WriteReportsZip(w io.Writer, records []models.Evaluation) (int, error) {
	zw := zip.NewWriter(w)
	written := 0
	seen := make(map[string]int)
	for _, rec := range records {
		if !rec.HasReport() {
			continue
		}
		name := ReportFileName(rec)
		if n := seen[name]; n > 0 {
			name = fmt.Sprintf("%s_%d.pdf", strings.TrimSuffix(name, ".pdf"), n)
		}
		seen[ReportFileName(rec)]++

		fw, err := zw.Create(name)
		if err != nil {
			return written, fmt.Errorf("failed to add %s: %w", name, err)
		}
		if _, err := fw.Write(rec.ReportPDF); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", name, err)
		}
		written++
	}
	if err := zw.Close(); err != nil {
		return written, fmt.Errorf("failed to finalize zip: %w", err)
	}
	return written, nil
}

// historyColumns maps accepted header spellings, including the legacy
// spreadsheet headers, to export columns.
var historyColumns = map[string]string{
	"fingerprint":       "fingerprint",
	"evaluated_at":      "evaluated_at",
	"fecha_carga":       "evaluated_at",
	"batch_label":       "batch_label",
	"filename":          "filename",
	"candidate_name":    "candidate_name",
	"candidato":         "candidate_name",
	"unit":              "unit",
	"facultad":          "unit",
	"role":              "role",
	"cargo":             "role",
	"composite_score":   "composite_score",
	"puntaje_final":     "composite_score",
	"band":              "band",
	"recomendación":     "band",
	"recomendacion":     "band",
	"fit_level":         "fit_level",
	"ajuste":            "fit_level",
	"summary":           "summary",
	"comentarios_texto": "summary",
	"formation":         "formation",
	"nota_formacion":    "formation",
	"experience":        "experience",
	"nota_experiencia":  "experience",
	"competencies":      "competencies",
	"nota_competencias": "competencies",
	"software":          "software",
	"nota_software":     "software",
	"gaps":              "gaps",
	"risks":             "risks",
	"strengths":         "strengths",
}

var legacyRoles = map[string]models.Role{
	"docente":           models.RoleTeaching,
	"investigador":      models.RoleResearch,
	"gestión académica": models.RoleAcademicManagement,
	"gestion academica": models.RoleAcademicManagement,
}

var legacyBands = map[string]models.Band{
	"avanza":     models.BandAdvance,
	"dudoso":     models.BandNeedsReferences,
	"descartado": models.BandNotRecommended,
}

// ReadHistoryXLSX loads records from a previously exported workbook. Rows
// without a fingerprint get one derived from their cell contents.
func ReadHistoryXLSX(r io.Reader) ([]models.Evaluation, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	index := make(map[string]int)
	for i, h := range rows[0] {
		if col, ok := historyColumns[strings.ToLower(strings.TrimSpace(h))]; ok {
			index[col] = i
		}
	}
	if _, ok := index["candidate_name"]; !ok {
		return nil, fmt.Errorf("workbook has no candidate column")
	}

	now := time.Now().UTC()
	var records []models.Evaluation
	for _, row := range rows[1:] {
		get := func(col string) string {
			i, ok := index[col]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}
		if strings.TrimSpace(strings.Join(row, "")) == "" {
			continue
		}

		rec := models.Evaluation{
			Fingerprint:   strings.ToLower(get("fingerprint")),
			EvaluatedAt:   parseHistoryTime(get("evaluated_at"), now),
			BatchLabel:    get("batch_label"),
			Filename:      get("filename"),
			CandidateName: get("candidate_name"),
			Unit:          get("unit"),
			Role:          parseHistoryRole(get("role")),
			FitLevel:      models.ParseFitLevel(get("fit_level")),
			Summary:       get("summary"),
			Formation:     parseScoreString(get("formation")),
			Experience:    parseScoreString(get("experience")),
			Competencies:  parseScoreString(get("competencies")),
			Software:      parseScoreString(get("software")),
			Gaps:          splitList(get("gaps")),
			Risks:         splitList(get("risks")),
			Strengths:     splitList(get("strengths")),
		}

		sub := models.SubScores{Formation: rec.Formation, Experience: rec.Experience, Competencies: rec.Competencies, Software: rec.Software}
		if s := get("composite_score"); s != "" {
			rec.CompositeScore = models.Round2(parseScoreString(s))
		} else {
			rec.CompositeScore = sub.Composite()
		}
		rec.Band = parseHistoryBand(get("band"), rec.CompositeScore)
		if rec.Fingerprint == "" {
			rec.Fingerprint = Fingerprint([]byte(strings.Join(row, "\x1f")))
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseHistoryTime(s string, fallback time.Time) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02 15:04", "2006-01-02", "02/01/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return fallback
}

func parseHistoryRole(s string) models.Role {
	if r, ok := models.ParseRole(s); ok {
		return r
	}
	if r, ok := legacyRoles[strings.ToLower(s)]; ok {
		return r
	}
	return models.Role(s)
}

func parseHistoryBand(s string, composite float64) models.Band {
	for _, b := range models.Bands {
		if strings.EqualFold(s, string(b)) {
			return b
		}
	}
	if b, ok := legacyBands[strings.ToLower(s)]; ok {
		return b
	}
	return models.BandFor(composite)
}

func splitList(s string) datatypes.JSONSlice[string] {
	out := datatypes.JSONSlice[string]{}
	for _, part := range strings.Split(s, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
