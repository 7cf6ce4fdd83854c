package document

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"

	"skillgap/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildDocx(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	files := map[string]string{
		"[Content_Types].xml":          `<?xml version="1.0"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`,
		"word/_rels/document.xml.rels": `<?xml version="1.0"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"/>`,
		"word/document.xml": `<?xml version="1.0"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
			body + `</w:body></w:document>`,
	}
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name string
		want Format
		ok   bool
	}{
		{"cv.PDF", FormatPDF, true},
		{"cv.docx", FormatDOCX, true},
		{"cv.md", FormatText, true},
		{"cv.txt", FormatText, true},
		{"cv.doc", "", false},
		{"cv", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DetectFormat(tt.name)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractText(t *testing.T) {
	text, err := Extract("cv.md", []byte("# Jane\r\n\r\n\r\n\r\nGo   and\tKubernetes  \n"))
	require.NoError(t, err)
	assert.Equal(t, "# Jane\n\nGo and Kubernetes", text)
}

func TestExtractDocx(t *testing.T) {
	data := buildDocx(t, `<w:p><w:r><w:t>Senior Engineer</w:t></w:r></w:p><w:p><w:r><w:t>Python &amp; SQL</w:t></w:r></w:p>`)

	text, err := Extract("cv.docx", data)
	require.NoError(t, err)
	assert.Equal(t, "Senior Engineer\nPython & SQL", text)
}

func TestExtractErrors(t *testing.T) {
	_, err := Extract("cv.exe", []byte("MZ"))
	assert.True(t, errors.HasCode(err, errors.ErrCodeUnsupportedDocument))

	_, err = Extract("cv.pdf", []byte("not a pdf"))
	assert.True(t, errors.HasCode(err, errors.ErrCodeDocumentParseFailed))

	_, err = Extract("cv.docx", []byte("not a zip"))
	assert.True(t, errors.HasCode(err, errors.ErrCodeDocumentParseFailed))

	_, err = Extract("cv.docx", buildDocx(t, `<w:p><w:r><w:t>   </w:t></w:r></w:p>`))
	assert.True(t, errors.HasCode(err, errors.ErrCodeDocumentParseFailed))
}

func TestExtractEmptyTextFile(t *testing.T) {
	text, err := Extract("job.txt", []byte("   \n  "))
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestReadLimited(t *testing.T) {
	data, err := ReadLimited(strings.NewReader("hello"), 5)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	_, err = ReadLimited(strings.NewReader("hello!"), 5)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidRequest))

	for _, limit := range []int64{0, -1} {
		data, err = ReadLimited(strings.NewReader("no limit configured"), limit)
		require.NoError(t, err)
		assert.Equal(t, "no limit configured", string(data))
	}
}
