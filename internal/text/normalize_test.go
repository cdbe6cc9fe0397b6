package text

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"plain", "hello world", "hello world"},
		{"crlf", "a\r\nb\rc\nd", "a b c d"},
		{"collapse runs", "a  \t  b\n\n\nc", "a b c"},
		{"trim", "  padded  ", "padded"},
		{"only whitespace", " \r\n\t ", ""},
		{"nbsp", "a b", "a b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"already normal",
		"  messy\r\n\r\n input\twith   runs  ",
		"unicode: héllo wörld\n",
	}

	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestNormalizeNeverGrows(t *testing.T) {
	inputs := []string{"a  b", "\r\n\r\n", "x", "  lots   of   space  "}
	for _, in := range inputs {
		assert.LessOrEqual(t, len(Normalize(in)), len(in))
	}
}
