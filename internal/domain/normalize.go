package domain

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// NormalizeHumanName trims leading/trailing whitespace and collapses internal whitespace runs.
// It is used for member, event and boat name normalization.
func NormalizeHumanName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NameCollator returns a case-insensitive Brazilian Portuguese collator.
// A collator is not safe for concurrent use; create one per sort.
func NameCollator() *collate.Collator {
	return collate.New(language.BrazilianPortuguese, collate.IgnoreCase, collate.Loose)
}

// SortMembersByName orders members by name (pt-BR collation), then by ID.
// When pinned is non-nil that member is placed first.
func SortMembersByName(ms []Member, pinned *MemberID) {
	c := NameCollator()
	sort.SliceStable(ms, func(i, j int) bool {
		if pinned != nil {
			pi, pj := ms[i].ID == *pinned, ms[j].ID == *pinned
			if pi != pj {
				return pi
			}
		}
		if r := c.CompareString(ms[i].Name, ms[j].Name); r != 0 {
			return r < 0
		}
		return ms[i].ID < ms[j].ID
	})
}
