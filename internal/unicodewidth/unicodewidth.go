// Package unicodewidth tells a GPU how many terminal cells a codepoint
// occupies, so "set" can advance the cursor correctly through wide CJK
// and fullwidth characters instead of assuming one rune per cell.
package unicodewidth

import "golang.org/x/text/width"

// Width returns the number of screen cells r occupies: 2 for characters
// classified East Asian Wide or Fullwidth, 1 otherwise.
func Width(r rune) int {
	switch width.LookupRune(r).Kind() {
	case width.EastAsianWide, width.EastAsianFullwidth:
		return 2
	default:
		return 1
	}
}
