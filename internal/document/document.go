// Package document turns uploaded CV files into plain text.
package document

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"skillgap/internal/errors"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

// Format is a supported upload type
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatText Format = "text"
)

var (
	paragraphEnd = regexp.MustCompile(`</w:p>`)
	tabTag       = regexp.MustCompile(`<w:tab/>`)
	xmlTag       = regexp.MustCompile(`<[^>]+>`)
	spaceRun     = regexp.MustCompile(`[ \t\r\f\v\x{00A0}]+`)
	newlineRun   = regexp.MustCompile(`\n{2,}`)
)

// DetectFormat maps a file name onto a supported format
func DetectFormat(filename string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return FormatPDF, true
	case ".docx":
		return FormatDOCX, true
	case ".txt", ".text", ".md", ".markdown":
		return FormatText, true
	}
	return "", false
}

// Extract returns the plain text of an uploaded document
func Extract(filename string, data []byte) (string, error) {
	format, ok := DetectFormat(filename)
	if !ok {
		return "", errors.NewValidationError(errors.ErrCodeUnsupportedDocument,
			fmt.Sprintf("Unsupported document type %q: use PDF, DOCX, TXT or MD", filepath.Ext(filename)), nil).
			WithContext("filename", filename)
	}

	var (
		text string
		err  error
	)
	switch format {
	case FormatPDF:
		text, err = extractPDF(data)
	case FormatDOCX:
		text, err = extractDOCX(data)
	default:
		if !utf8.Valid(data) {
			err = fmt.Errorf("text file is not valid UTF-8")
		}
		text = string(data)
	}
	if err != nil {
		return "", errors.NewValidationError(errors.ErrCodeDocumentParseFailed,
			fmt.Sprintf("Could not read %s document", format), err).
			WithContext("filename", filename)
	}

	text = normalizeWhitespace(text)
	// An empty text file is valid input; a PDF or DOCX without text is usually a scan
	if text == "" && format != FormatText {
		return "", errors.NewValidationError(errors.ErrCodeDocumentParseFailed,
			"Document contains no extractable text", nil).
			WithContext("filename", filename)
	}
	return text, nil
}

func extractPDF(data []byte) (text string, err error) {
	// The pdf reader panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
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

func extractDOCX(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	defer func() { _ = doc.Close() }()

	content := doc.Editable().GetContent()
	content = paragraphEnd.ReplaceAllString(content, "\n")
	content = tabTag.ReplaceAllString(content, "\t")
	content = xmlTag.ReplaceAllString(content, "")
	return unescapeXML(content), nil
}

var xmlEntities = strings.NewReplacer("&lt;", "<", "&gt;", ">", "&quot;", `"`, "&apos;", "'", "&amp;", "&")

func unescapeXML(s string) string {
	return xmlEntities.Replace(s)
}

func normalizeWhitespace(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(spaceRun.ReplaceAllString(line, " "))
	}
	return strings.TrimSpace(newlineRun.ReplaceAllString(strings.Join(lines, "\n"), "\n\n"))
}

// ReadLimited reads at most limit bytes from r and fails when more are available.
// A limit of zero or less reads everything.
func ReadLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, errors.NewIOError(errors.ErrCodeFileNotReadable, "Failed to read upload", err)
		}
		return data, nil
	}

	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable, "Failed to read upload", err)
	}
	if int64(len(data)) > limit {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("Upload exceeds the %d byte limit", limit), nil)
	}
	return data, nil
}
