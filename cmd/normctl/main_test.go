package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sampleCatalog = filepath.Join("..", "..", "examples", "catalog.yaml")

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("NORMATIVE_LOG_LEVEL", "error")

	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(append([]string{"--no-color", "--catalog", sampleCatalog}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestAnalyze(t *testing.T) {
	out, err := run(t, "analyze", "--top", "3")
	require.NoError(t, err)

	assert.Contains(t, out, "Analyzed 4 frameworks")
	assert.Contains(t, out, "direct_contradiction")
	assert.Contains(t, out, "conflict cluster(s)")
}

func TestAnalyze_Formats(t *testing.T) {
	md, err := run(t, "analyze", "--format", "markdown")
	require.NoError(t, err)
	assert.Contains(t, md, "# Normative Conflict Report")

	html, err := run(t, "analyze", "--format", "html")
	require.NoError(t, err)
	assert.Contains(t, html, "<h1>Normative Conflict Report</h1>")

	_, err = run(t, "analyze", "--format", "pdf")
	assert.ErrorContains(t, err, "unknown format")
}

func TestSearch(t *testing.T) {
	out, err := run(t, "search", "privacy")
	require.NoError(t, err)
	assert.Contains(t, out, "Federal Privacy Act")
	assert.NotContains(t, out, "Banking Records Retention Rule")

	out, err = run(t, "search", "zebra")
	require.NoError(t, err)
	assert.Contains(t, out, "No frameworks match.")
}

func TestResolve(t *testing.T) {
	out, err := run(t, "resolve", "State Consumer Privacy Act", "federal privacy act")
	require.NoError(t, err)
	assert.Contains(t, out, "Primary: Federal Privacy Act")
	assert.Contains(t, out, "2. State Consumer Privacy Act")

	_, err = run(t, "resolve", "Unknown Act")
	assert.ErrorContains(t, err, "framework not found")
}

func TestApplicable(t *testing.T) {
	out, err := run(t, "applicable", "state")
	require.NoError(t, err)
	assert.Contains(t, out, "4 framework(s) apply in state")
	assert.Contains(t, out, "Convention on Cross-Border Data Protection (international)")

	_, err = run(t, "applicable", "galactic")
	assert.ErrorContains(t, err, "unknown jurisdiction")
}

func TestStats(t *testing.T) {
	out, err := run(t, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Total frameworks")
	assert.Contains(t, out, "Jurisdiction federal")
}

func TestMissingCatalog(t *testing.T) {
	t.Setenv("NORMATIVE_CATALOG_PATH", "")

	var out bytes.Buffer
	cmd := newRootCmd(&out, &out)
	cmd.SetArgs([]string{"stats"})
	assert.ErrorContains(t, cmd.Execute(), "no catalogue given")
}
