package uploads

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProbablyText(t *testing.T) {
	require.True(t, ProbablyText([]byte("hello world\n")))
	require.True(t, ProbablyText([]byte("tabs\tand\r\nnewlines\n")))
	require.True(t, ProbablyText([]byte("caf\xe9")))
	require.True(t, ProbablyText([]byte{}))

	require.False(t, ProbablyText([]byte{0x00}))
	require.False(t, ProbablyText([]byte("text with a \x00 null")))
	require.False(t, ProbablyText([]byte{0x1b, 0x03, 0x05}))
}

func TestProbablyTextAllowsEscapes(t *testing.T) {
	// 0x07-0x0d covers bell through carriage return but not escape itself,
	// matching how libmagic classifies terminal output with raw escapes.
	require.False(t, ProbablyText([]byte("\x1b[31mred\x1b[0m")))
}

func TestDetermineMIMETypeFromExtension(t *testing.T) {
	require.Equal(t, "image/png", DetermineMIMEType("shot.png", pngHeader(), false))
	require.Equal(t, "application/pdf", DetermineMIMEType("doc.pdf", []byte("%PDF-1.4"), false))
}

func TestDetermineMIMETypeDisallowedDegrades(t *testing.T) {
	// HTML would be dangerous to serve as detected, so it degrades to the
	// generic text type.
	got := DetermineMIMEType("page.html", []byte("<!DOCTYPE html><html></html>"), true)
	require.Equal(t, "text/plain", got)

	got = DetermineMIMEType("blob", []byte{0x00, 0x01, 0x02, 0x03}, false)
	require.Equal(t, "application/octet-stream", got)
}

func TestDetermineMIMETypeSniffsContent(t *testing.T) {
	require.Equal(t, "image/png", DetermineMIMEType("upload", pngHeader(), false))
}

func TestDetermineContentDisposition(t *testing.T) {
	got := DetermineContentDisposition("notes.txt", "text/plain", true)
	require.Equal(t, `inline; filename="notes.txt"; filename*=utf-8''notes.txt`, got)

	got = DetermineContentDisposition("shot.png", "image/png", false)
	require.Contains(t, got, "inline;")

	got = DetermineContentDisposition("blob.bin", "application/octet-stream", false)
	require.Contains(t, got, "attachment;")
}

func TestDetermineContentDispositionEscaping(t *testing.T) {
	got := DetermineContentDisposition(`we"ird name.txt`, "text/plain", true)
	require.NotContains(t, got, `we"ird`)
	require.Contains(t, got, "filename*=utf-8''we%22ird%20name.txt")
}

func TestIsImageMIME(t *testing.T) {
	require.True(t, IsImageMIME("image/png"))
	require.False(t, IsImageMIME("text/plain"))
}

func pngHeader() []byte {
	return []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}
}
