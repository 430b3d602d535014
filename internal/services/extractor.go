package services

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"

	"alfredoptarigan/cv-screener/internal/logger"
	"alfredoptarigan/cv-screener/internal/models"
)

const (
	MediaTypePDF  = "application/pdf"
	MediaTypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

	// MinUsableChars is the shortest trimmed text worth sending to the model.
	MinUsableChars = 50
)

type TextExtractor interface {
	ExtractText(doc models.UploadedDocument) string
}

type textExtractor struct {
	log *logger.Logger
}

func NewTextExtractor(log *logger.Logger) TextExtractor {
	if log == nil {
		log = logger.Nop()
	}
	return &textExtractor{log: log}
}

// ExtractText returns the plain text of a PDF or Word document. Corrupt or
// unsupported files yield "".
func (e *textExtractor) ExtractText(doc models.UploadedDocument) string {
	var (
		text string
		err  error
	)
	switch mt := ResolveMediaType(doc); mt {
	case MediaTypePDF:
		text, err = extractPDF(doc.Content)
	case MediaTypeDOCX:
		text, err = extractDOCX(doc.Content)
	default:
		e.log.Warn("unsupported media type", "filename", doc.Filename, "media_type", mt)
		return ""
	}
	if err != nil {
		e.log.Warn("text extraction failed", "filename", doc.Filename, "error", err)
		return ""
	}
	return text
}

// IsUsable reports whether extracted text is long enough to score.
func IsUsable(text string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(text)) >= MinUsableChars
}

// ResolveMediaType trusts a supported declared type first, then the file
// extension, then the content itself.
func ResolveMediaType(doc models.UploadedDocument) string {
	declared := strings.ToLower(strings.TrimSpace(doc.MediaType))
	if i := strings.Index(declared, ";"); i >= 0 {
		declared = strings.TrimSpace(declared[:i])
	}
	if declared == MediaTypePDF || declared == MediaTypeDOCX {
		return declared
	}

	switch strings.ToLower(filepath.Ext(doc.Filename)) {
	case ".pdf":
		return MediaTypePDF
	case ".docx":
		return MediaTypeDOCX
	}

	if len(doc.Content) == 0 {
		return declared
	}
	detected := mimetype.Detect(doc.Content)
	switch {
	case detected.Is(MediaTypePDF):
		return MediaTypePDF
	case detected.Is(MediaTypeDOCX):
		return MediaTypeDOCX
	}
	return detected.String()
}

func extractPDF(content []byte) (text string, err error) {
	// The PDF reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("failed to parse PDF: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(pageText)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func extractDOCX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("failed to open docx: %w", err)
	}

	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("failed to open document.xml: %w", err)
		}
		defer rc.Close()
		return docxParagraphs(rc)
	}
	return "", fmt.Errorf("docx has no word/document.xml")
}

// docxParagraphs joins the text runs of each w:p, one paragraph per line.
func docxParagraphs(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var (
		paragraphs []string
		current    strings.Builder
		inText     bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to decode document.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				current.WriteString("\t")
			case "br", "cr":
				current.WriteString("\n")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				paragraphs = append(paragraphs, current.String())
				current.Reset()
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}
	if current.Len() > 0 {
		paragraphs = append(paragraphs, current.String())
	}
	return strings.Join(paragraphs, "\n"), nil
}
