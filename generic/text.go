package generic

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Canonical trims surrounding whitespace and converts s to Unicode NFC.
//
// The warehouse export and browser forms disagree on how accented letters
// are encoded ("Usuário" may arrive precomposed or as "a" + combining
// acute). Every name that is later compared byte-for-byte (operator,
// activity, function, KPI) goes through here once, at ingestion.
func Canonical(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// CanonicalAll applies Canonical to every element, returning a new slice.
func CanonicalAll(ss []string) []string {
	if ss == nil {
		return nil
	}
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = Canonical(s)
	}
	return out
}
