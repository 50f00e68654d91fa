// Package grades translates TopLogger's numeric grade codes into
// display glyphs on the French scale.
package grades

import (
	"strconv"
	"strings"
)

// frenchGlyphs is keyed by the decimal string form of the grade code,
// not the float value, so lookups never suffer floating point drift.
// the service emits both the x.66 and x.67 spellings for "c" grades.
var frenchGlyphs = map[string]string{
	"2.0":  "?",
	"2.17": "2⁺",
	"2.33": "2ʙ",
	"2.5":  "2ʙ⁺",
	"2.66": "2ᴄ",
	"2.67": "2ᴄ",
	"2.75": "2⁺",
	"2.83": "2ᴄ⁺",
	"3.0":  "3ᴀ",
	"3.17": "3ᴀ⁺",
	"3.33": "3ʙ",
	"3.5":  "3ʙ⁺",
	"3.66": "3ᴄ",
	"3.67": "3ᴄ",
	"3.83": "3ᴄ⁺",
	"4.0":  "4ᴀ",
	"4.17": "4ᴀ⁺",
	"4.33": "4ʙ",
	"4.5":  "4ʙ⁺",
	"4.66": "4ᴄ",
	"4.67": "4ᴄ",
	"4.83": "4ᴄ⁺",
	"5.0":  "5ᴀ",
	"5.17": "5ᴀ⁺",
	"5.33": "5ʙ",
	"5.5":  "5ʙ⁺",
	"5.66": "5ᴄ",
	"5.67": "5ᴄ",
	"5.83": "5ᴄ⁺",
	"6.0":  "6ᴀ",
	"6.17": "6ᴀ⁺",
	"6.33": "6ʙ",
	"6.5":  "6ʙ⁺",
	"6.66": "6ᴄ",
	"6.67": "6ᴄ",
	"6.83": "6ᴄ⁺",
	"7.0":  "7ᴀ",
	"7.17": "7ᴀ⁺",
	"7.33": "7ʙ",
	"7.5":  "7ʙ⁺",
	"7.66": "7ᴄ",
	"7.67": "7ᴄ",
	"7.83": "7ᴄ⁺",
	"8.0":  "8ᴀ",
	"8.17": "8ᴀ⁺",
	"8.33": "8ʙ",
	"8.5":  "8ʙ⁺",
	"8.66": "8ᴄ",
	"8.67": "8ᴄ",
	"8.83": "8ᴄ⁺",
	"9.0":  "9ᴀ",
	"9.17": "9ᴀ⁺",
	"9.33": "9ʙ",
	"9.5":  "9ʙ⁺",
	"9.66": "9ᴄ",
	"9.67": "9ᴄ",
	"9.83": "9ᴄ⁺",
	"10.0": "10ᴀ",
}

// Glyph looks up the display glyph for a grade code string, e.g.
// "4.17" -> "4ᴀ⁺". the table is known to be incomplete at its bounds,
// a miss means "no glyph available", not an error.
func Glyph(code string) (string, bool) {
	g, ok := frenchGlyphs[code]
	return g, ok
}

// GlyphForValue looks up the glyph for a numeric grade code.
func GlyphForValue(code float64) (string, bool) {
	return Glyph(FormatCode(code))
}

// FormatCode renders a numeric grade code with exactly the precision
// the table keys use: minimal decimal digits, integral values keeping
// a trailing ".0" (4.17 -> "4.17", 4 -> "4.0").
func FormatCode(code float64) string {
	s := strconv.FormatFloat(code, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}

// Codes returns every grade code string the table knows about.
func Codes() []string {
	out := make([]string, 0, len(frenchGlyphs))
	for code := range frenchGlyphs {
		out = append(out, code)
	}
	return out
}
