package common

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"skillgap/internal/errors"
	"skillgap/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *errors.Logger {
	return errors.NewLoggerTo(io.Discard, slog.LevelError)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestReadDocument(t *testing.T) {
	dir := t.TempDir()
	fp := NewFileProcessor(quietLogger(), 64)

	text, err := fp.ReadDocument(writeFile(t, dir, "cv.md", "  Python   developer \n\n\n\nGo "))
	require.NoError(t, err)
	assert.Equal(t, "Python developer\n\nGo", text)

	text, err = fp.ReadDocument(writeFile(t, dir, "job", "Kubernetes"))
	require.NoError(t, err, "unknown extensions are read as text")
	assert.Equal(t, "Kubernetes", text)

	_, err = fp.ReadDocument(filepath.Join(dir, "missing.txt"))
	assert.True(t, errors.HasCode(err, errors.ErrCodeFileNotFound))

	_, err = fp.ReadDocument(writeFile(t, dir, "big.txt", strings.Repeat("x", 65)))
	assert.True(t, errors.HasCode(err, "INVALID_INPUT_FILE"))

	text, err = fp.ReadDocument(writeFile(t, dir, "empty.txt", "   "))
	require.NoError(t, err, "an empty job description is valid input")
	assert.Empty(t, text)
}

func TestRunCommand(t *testing.T) {
	dir := t.TempDir()
	cv := writeFile(t, dir, "cv.txt", "Python")
	job := writeFile(t, dir, "job.txt", "Python and Kubernetes")

	var out bytes.Buffer
	var got types.AnalysisRequest
	err := RunCommand(context.Background(), quietLogger(),
		CommandConfig{OutputFormat: "json", Stdout: &out},
		[]string{cv, job},
		func(contents []string) (types.AnalysisRequest, error) {
			return types.AnalysisRequest{CVText: contents[0], JobDescription: contents[1]}, nil
		},
		func(_ context.Context, in types.AnalysisRequest) (types.ExtractResponse, error) {
			got = in
			return types.ExtractResponse{Skills: []types.NormalizedSkill{{Normalized: "Kubernetes"}}}, nil
		},
		nil,
	)
	require.NoError(t, err)
	assert.Equal(t, "Python", got.CVText)
	assert.Equal(t, "Python and Kubernetes", got.JobDescription)
	assert.Contains(t, out.String(), `"normalized": "Kubernetes"`)
}

func TestHandleOutputToFile(t *testing.T) {
	target := filepath.Join(t.TempDir(), "out", "demand.txt")
	oh := NewOutputHandler(quietLogger())

	err := oh.HandleOutput([]types.DemandRecord{{Skill: "Go", TotalDemand: 10, Priority: types.PriorityLow}},
		CommandConfig{OutputFile: target, OutputFormat: "text"})
	require.NoError(t, err)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), "MARKET DEMAND")

	err = oh.HandleOutput(struct{}{}, CommandConfig{OutputFormat: "markdown", Stdout: io.Discard})
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidFormat))
}
