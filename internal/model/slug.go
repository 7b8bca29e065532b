package model

import (
	"regexp"
	"strings"
)

var turkishASCII = strings.NewReplacer(
	"Ç", "C", "ç", "c",
	"Ğ", "G", "ğ", "g",
	"İ", "I", "ı", "i",
	"Ö", "O", "ö", "o",
	"Ş", "S", "ş", "s",
	"Ü", "U", "ü", "u",
)

var (
	slugSpaces  = regexp.MustCompile(`\s+`)
	slugInvalid = regexp.MustCompile(`[^A-Za-z0-9\-]`)
)

// Slug folds Turkish letters to ASCII and lower-cases the result, so
// "Şanlıurfa" becomes "sanliurfa". Dataset file names use the same form.
func Slug(s string) string {
	s = turkishASCII.Replace(strings.TrimSpace(s))
	s = slugSpaces.ReplaceAllString(s, "-")
	s = slugInvalid.ReplaceAllString(s, "")
	return strings.ToLower(s)
}
