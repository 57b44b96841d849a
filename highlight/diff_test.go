package highlight

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleDiff = `diff --git a/app.py b/app.py
index 1234567..89abcde 100644
--- a/app.py
+++ b/app.py
@@ -1,4 +1,5 @@
 import os
-import sys
-import json
+import io
 print("hello")
+print("world")
+print("!")
`

func TestPrepareTextsColumnsEqualLength(t *testing.T) {
	h := &DiffHighlighter{lexer: ResolveLexer("", "python", "")}
	texts := h.PrepareTexts(sampleDiff)
	require.Len(t, texts, 3)

	left := strings.Split(texts[0].Text, "\n")
	right := strings.Split(texts[1].Text, "\n")
	require.Equal(t, len(left), len(right))

	// Removed lines stay out of the added column and vice versa.
	require.Contains(t, texts[0].Text, "-import sys")
	require.NotContains(t, texts[1].Text, "-import sys")
	require.Contains(t, texts[1].Text, "+print(\"world\")")
	require.NotContains(t, texts[0].Text, "+print(\"world\")")

	// The raw input always comes last.
	require.Equal(t, sampleDiff, texts[2].Text)
}

func TestPrepareTextsHeaderLinesSplitByColumn(t *testing.T) {
	h := &DiffHighlighter{lexer: ResolveLexer("", "python", "")}
	texts := h.PrepareTexts(sampleDiff)

	require.Contains(t, texts[0].Text, "--- a/app.py")
	require.NotContains(t, texts[1].Text, "--- a/app.py")
	require.Contains(t, texts[1].Text, "+++ b/app.py")
	require.NotContains(t, texts[0].Text, "+++ b/app.py")
}

func TestPrepareTextsCompactedRowKeepsBothLineNumbers(t *testing.T) {
	diff := strings.Join([]string{
		"@@ -1,3 +1,3 @@",
		" a",
		"-b",
		"+B",
		" c",
	}, "\n")

	h := &DiffHighlighter{lexer: ResolveLexer("", "", "")}
	texts := h.PrepareTexts(diff)

	// Rows: "@@" header, " a", then "-b" and "+B" share one row, then " c".
	mapping := texts[0].LineNumbers
	require.Equal(t, texts[0].LineNumbers, texts[1].LineNumbers)
	require.Equal(t, [][]int{{1}, {2}, {3, 4}, {5}}, mapping)
}

func TestPrepareTextsPadsShorterColumn(t *testing.T) {
	diff := strings.Join([]string{
		" a",
		"+b",
		"+c",
		" d",
	}, "\n")

	h := &DiffHighlighter{lexer: ResolveLexer("", "", "")}
	texts := h.PrepareTexts(diff)

	// Context lines keep their leading space so columns stay aligned with
	// marker lines.
	require.Equal(t, " a\n\n\n d", texts[0].Text)
	require.Equal(t, " a\n+b\n+c\n d", texts[1].Text)
}

func TestStripDiffMarkers(t *testing.T) {
	got := StripDiffMarkers(sampleDiff)
	require.NotContains(t, got, "diff --git")
	require.NotContains(t, got, "@@")
	require.NotContains(t, got, "index ")
	require.Contains(t, got, "import sys\n")
	require.Contains(t, got, "print(\"world\")\n")
	require.NotContains(t, got, "+print")
	require.NotContains(t, got, "-import")
}

func TestDiffHighlightMarksChangedRows(t *testing.T) {
	h := &DiffHighlighter{lexer: ResolveLexer("", "python", "")}
	texts := h.PrepareTexts(sampleDiff)

	left, err := h.Highlight(texts[0])
	require.NoError(t, err)
	require.Contains(t, string(left), "diff-remove")
	require.NotContains(t, string(left), "diff-add")

	right, err := h.Highlight(texts[1])
	require.NoError(t, err)
	require.Contains(t, string(right), "diff-add")
	require.NotContains(t, string(right), "diff-remove")
}

func TestDiffHighlighterName(t *testing.T) {
	h := &DiffHighlighter{lexer: ResolveLexer("", "python", "")}
	require.Equal(t, "Diff (Python)", h.Name())
	require.True(t, h.RenderAsDiff())
}
