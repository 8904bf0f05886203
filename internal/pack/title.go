package pack

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.Und)

// DefaultTitle derives a human-readable title from a deposited file name:
// the extensions go, separators become spaces, and each word is
// capitalized. A metadata descriptor can later replace this title, but a
// title an operator customized is left alone.
func DefaultTitle(fileName string) string {
	base := baseName(fileName)
	base = strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(base)
	base = strings.Join(strings.Fields(base), " ")
	if base == "" {
		return fileName
	}
	return titleCaser.String(base)
}
