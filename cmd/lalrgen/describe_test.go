package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nihei9/lalrgen/grammar"
	spec "github.com/nihei9/lalrgen/spec/grammar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const danglingElseSrc = `
name = "stmt"

[[terminal]]
name    = "if"
literal = "if"
[[terminal]]
name    = "else"
literal = "else"
[[terminal]]
name    = "x"
literal = "x"

[[production]]
lhs = "stmt"
rhs = ["if", "stmt"]
[[production]]
lhs = "stmt"
rhs = ["if", "stmt", "else", "stmt"]
[[production]]
lhs = "stmt"
rhs = ["x"]
`

func compileTestReport(t *testing.T, src string) *spec.Report {
	t.Helper()

	gs, err := spec.Parse(strings.NewReader(src))
	require.NoError(t, err)
	b := grammar.GrammarBuilder{
		Spec: gs,
	}
	g, err := b.Build()
	require.NoError(t, err)
	_, report, err := grammar.Compile(g, grammar.EnableReporting())
	require.NoError(t, err)
	return report
}

func TestWriteReport(t *testing.T) {
	report := compileTestReport(t, danglingElseSrc)

	var b bytes.Buffer
	require.NoError(t, writeReport(&b, report))
	out := b.String()
	assert.Contains(t, out, "1 conflict was detected (0 resolved by declarations).")
	assert.Contains(t, out, "stmt → if stmt")
	assert.Contains(t, out, "adopted by shift by default")
	assert.Contains(t, out, "## State 0")
}

func TestRenderParsingTable(t *testing.T) {
	report := compileTestReport(t, danglingElseSrc)

	out := renderParsingTable(report)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	// Borders, a header, a separator, and a row per state.
	assert.Len(t, lines, len(report.States)+4)
	header := strings.ToLower(lines[1])
	assert.Contains(t, header, "else")
	assert.Contains(t, header, "stmt")
}

func TestMakeOutputFilePaths(t *testing.T) {
	dir := t.TempDir()

	cgramPath, reportPath, err := makeOutputFilePaths("calc", dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "calc.json"), cgramPath)
	assert.Equal(t, filepath.Join(dir, "calc-report.json"), reportPath)

	cgramPath, reportPath, err = makeOutputFilePaths("calc", filepath.Join(dir, "out.json"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "out.json"), cgramPath)
	assert.Equal(t, filepath.Join(dir, "calc-report.json"), reportPath)
}
