package project

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// words splits s into maximal runs of ASCII letters and digits.
func words(s string) []string {
	var out []string
	var b strings.Builder
	flush := func() {
		if b.Len() > 0 {
			out = append(out, b.String())
			b.Reset()
		}
	}
	for _, r := range s {
		if isAlnum(r) {
			b.WriteRune(r)
			continue
		}
		flush()
	}
	flush()
	return out
}

func isAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// Slugify lowercases s, collapses every run of non-alphanumeric characters
// into a single hyphen, and strips leading and trailing hyphens.
// "My Shop!" → "my-shop". The result is empty only when s contains no
// ASCII letters or digits.
func Slugify(s string) string {
	return strings.Join(words(strings.ToLower(s)), "-")
}

// Kebab is the same as Slugify.
func Kebab(s string) string {
	return Slugify(s)
}

// Pascal capitalizes the first letter of each alphanumeric run and joins
// them: "my shop" → "MyShop". The rest of each run keeps its case, so
// "API gateway" → "APIGateway".
func Pascal(s string) string {
	caser := cases.Title(language.Und, cases.NoLower)
	var b strings.Builder
	for _, w := range words(s) {
		b.WriteString(caser.String(w))
	}
	return b.String()
}

// Snake lowercases each alphanumeric run and joins them with underscores.
func Snake(s string) string {
	return strings.Join(words(strings.ToLower(s)), "_")
}
