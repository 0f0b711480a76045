package textdiff

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeStripsMarkupAndCollapsesWhitespace(t *testing.T) {
	cases := map[string]string{
		"":                                       "",
		"   \n\t ":                               "",
		"Plain   text":                           "Plain text",
		"<p>Speed is <strong>60</strong></p>":    "Speed is 60",
		"<p>first</p><p>second</p>":              "first second",
		"<div id=\"s1\">  Hello\n   world </div>": "Hello world",
		"Signals &amp; points&nbsp;ahead":        "Signals & points ahead",
	}

	for input, expected := range cases {
		require.Equal(t, expected, Normalize(input), "input %q", input)
	}
}

func TestNormalizeKeepsLiteralLessThan(t *testing.T) {
	require.Equal(t, "speed<60 km", Normalize("speed<60 km"))
	require.Equal(t, "speed<60 km", Normalize("<p>speed&lt;60 km</p>"))
	require.Equal(t, "a < b", Normalize("a < b"))
	require.Equal(t, "gap<2m here", Normalize("gap<2m<br/>here"))
}

func TestWordsSplitsOnWhitespace(t *testing.T) {
	require.Empty(t, Words(""))
	require.Equal(t, []string{"a", "b", "c"}, Words(" a  b\tc "))
}
