package highlight

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// UnifiedDiff produces a unified diff between two texts with three lines of
// context and empty file headers. Identical texts produce an empty string.
// This is what the paste form submits when two texts are diffed against
// each other.
func UnifiedDiff(before, after string) string {
	a := splitKeepEnds(before)
	b := splitKeepEnds(after)
	groups := difflib.NewMatcher(a, b).GetGroupedOpCodes(3)
	if len(groups) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("--- \n+++ \n")
	for _, group := range groups {
		first, last := group[0], group[len(group)-1]
		fmt.Fprintf(&sb, "@@ -%s +%s @@\n",
			formatRange(first.I1, last.I2),
			formatRange(first.J1, last.J2))
		for _, op := range group {
			switch op.Tag {
			case 'e':
				for _, line := range a[op.I1:op.I2] {
					sb.WriteString(" " + line)
				}
			case 'r', 'd':
				for _, line := range a[op.I1:op.I2] {
					sb.WriteString("-" + line)
				}
			}
			if op.Tag == 'r' || op.Tag == 'i' {
				for _, line := range b[op.J1:op.J2] {
					sb.WriteString("+" + line)
				}
			}
		}
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

// splitKeepEnds splits text into lines keeping the newlines. Unlike
// difflib.SplitLines it doesn't invent a trailing empty line for text that
// already ends with a newline.
func splitKeepEnds(text string) []string {
	lines := strings.SplitAfter(text, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// formatRange formats a line range the way unified diffs do: 1-based start
// plus length, with the length omitted when it is 1.
func formatRange(start, stop int) string {
	length := stop - start
	if length == 1 {
		return fmt.Sprintf("%d", start+1)
	}
	if length == 0 {
		start--
	}
	return fmt.Sprintf("%d,%d", start+1, length)
}
