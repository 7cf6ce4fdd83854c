package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"skillgap/internal/common"
	"skillgap/internal/config"
	"skillgap/internal/errors"
	"skillgap/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyServeFlags(t *testing.T) {
	cfg := &config.Config{Server: config.ServerConfig{Host: "0.0.0.0", Port: "8080"}}

	require.NoError(t, serveCmd.Flags().Set("port", "9090"))
	t.Cleanup(func() {
		_ = serveCmd.Flags().Set("port", "")
		serveCmd.Flags().Lookup("port").Changed = false
	})

	applyServeFlags(serveCmd, cfg)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host, "unset flags keep config values")
	assert.False(t, cfg.Server.WatchPrompts)
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	t.Cleanup(func() { versionCmd.SetOut(nil) })

	versionCmd.Run(versionCmd, nil)
	assert.Contains(t, out.String(), "skillgap version dev")
}

func TestCommandsRegistered(t *testing.T) {
	names := make([]string, 0)
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"analyze", "quant", "extract", "demand", "serve", "version"})
}

func TestOutputFlagsDefaultFormat(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{DefaultFormat: "text", SupportedFormats: []string{"json", "text"}, MaxFileSize: 1024}}
	quantCmd.SetContext(context.WithValue(t.Context(), configKey, cfg))
	t.Cleanup(func() { quantConfig = common.CommandConfig{} })

	require.NoError(t, quantCmd.PreRunE(quantCmd, nil))
	assert.Equal(t, "text", quantConfig.OutputFormat)
	assert.Equal(t, int64(1024), quantConfig.MaxFileSize)

	quantConfig.OutputFormat = "markdown"
	assert.Error(t, quantCmd.PreRunE(quantCmd, nil))
}

func localCommandContext(t *testing.T) context.Context {
	t.Helper()
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0600))
		return path
	}

	cfg := &config.Config{
		Data: config.DataConfig{
			PostingsFile: write("postings.csv", "Skill Keyword,Job Posting Title,Count\nDocker,DevOps Engineer,2500\n"),
			TaxonomyFile: write("taxonomy.csv", "preferredLabel,conceptUri,skillType\nPython,uri:python,knowledge\n"),
		},
		App: config.AppConfig{DefaultFormat: "json", SupportedFormats: []string{"json", "text", "markdown"}, MaxFileSize: 1 << 20},
	}
	ctx := context.WithValue(t.Context(), configKey, cfg)
	return context.WithValue(ctx, loggerKey, errors.NewLoggerTo(io.Discard, slog.LevelError))
}

func TestQuantWithoutAIKey(t *testing.T) {
	ctx := localCommandContext(t)
	dir := t.TempDir()
	cv := filepath.Join(dir, "cv.txt")
	job := filepath.Join(dir, "job.txt")
	require.NoError(t, os.WriteFile(cv, []byte("Five years of Python and Docker"), 0600))
	require.NoError(t, os.WriteFile(job, nil, 0600))

	var out bytes.Buffer
	quantCmd.SetContext(ctx)
	quantCmd.SetOut(&out)
	t.Cleanup(func() {
		quantCmd.SetOut(nil)
		quantConfig = common.CommandConfig{}
	})

	require.NoError(t, quantCmd.PreRunE(quantCmd, nil))
	require.NoError(t, runQuant(quantCmd, []string{cv, job}))

	var report types.QuantitativeReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, 50.0, report.OverallScore)
	assert.NotZero(t, report.SkillsBreakdown.CVSkillsCount)
}

func TestDemandWithoutAIKey(t *testing.T) {
	var out bytes.Buffer
	demandCmd.SetContext(localCommandContext(t))
	demandCmd.SetOut(&out)
	t.Cleanup(func() {
		demandCmd.SetOut(nil)
		demandConfig = common.CommandConfig{}
	})

	require.NoError(t, demandCmd.PreRunE(demandCmd, nil))
	require.NoError(t, runDemand(demandCmd, []string{"docker"}))

	var records []types.DemandRecord
	require.NoError(t, json.Unmarshal(out.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, types.PriorityHigh, records[0].Priority)
}

func TestAnalyzeRequiresAIKey(t *testing.T) {
	analyzeCmd.SetContext(localCommandContext(t))

	_, err := newEngine(analyzeCmd)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidConfig))
}
