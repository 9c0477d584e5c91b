package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_PlainText(t *testing.T) {
	s := New(0)
	text, err := s.Extract([]byte("hello world\n"), "text/plain", "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)
}

func TestExtract_TextWithCharsetParam(t *testing.T) {
	s := New(0)
	text, err := s.Extract([]byte("csv,data"), "text/csv; charset=utf-8", "a.csv")
	require.NoError(t, err)
	assert.Equal(t, "csv,data", text)
}

func TestExtract_HTML(t *testing.T) {
	s := New(0)
	input := `<html><head><title>T</title><style>p{}</style></head>
<body><h1>Heading</h1><p>First &amp; второй.</p><script>alert(1)</script></body></html>`

	text, err := s.Extract([]byte(input), "text/html", "page.html")
	require.NoError(t, err)
	assert.Contains(t, text, "Heading")
	assert.Contains(t, text, "First & второй.")
	assert.NotContains(t, text, "alert")
	assert.NotContains(t, text, "<")
}

func TestExtract_JSON(t *testing.T) {
	s := New(0)
	text, err := s.Extract([]byte(`{"k":"v"}`), "application/json", "a.json")
	require.NoError(t, err)
	assert.Equal(t, `{"k":"v"}`, text)
}

func TestExtract_EmptyContent(t *testing.T) {
	s := New(0)
	text, err := s.Extract(nil, "text/plain", "a.txt")
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestExtract_BinaryFormatYieldsEmpty(t *testing.T) {
	s := New(0)
	text, err := s.Extract([]byte{0x89, 0x50, 0x4e, 0x47}, "image/png", "a.png")
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestExtract_InvalidUTF8YieldsEmpty(t *testing.T) {
	s := New(0)
	text, err := s.Extract([]byte{0xff, 0xfe, 0x00}, "text/plain", "a.txt")
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestExtract_SizeCap(t *testing.T) {
	s := New(5)
	text, err := s.Extract([]byte("0123456789"), "text/plain", "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "01234", text)
}

func TestStripHTML_Lists(t *testing.T) {
	out := StripHTML("<ul><li>one</li><li>two</li></ul>")
	assert.Equal(t, "one\ntwo", out)
}
