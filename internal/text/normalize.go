// Package text provides pure text preparation primitives for the ingestion
// pipeline: whitespace normalization and sentence-preserving chunking.
// Everything here is deterministic and free of I/O.
package text

import "strings"

// Normalize standardizes line breaks, collapses all whitespace runs to a
// single space, and trims leading/trailing whitespace.
//
// Normalize is idempotent: Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	if s == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(s))

	inSpace := false
	for _, r := range s {
		// \r and \r\n both normalize to whitespace and collapse with any
		// adjacent run, so CRLF handling falls out of the space collapse.
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f' || r == 0x85 || r == 0xA0 {
			inSpace = true
			continue
		}
		if inSpace && b.Len() > 0 {
			b.WriteByte(' ')
		}
		inSpace = false
		b.WriteRune(r)
	}

	return b.String()
}
