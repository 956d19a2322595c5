// Package dedup finds content items that share a title.
package dedup

import (
	"regexp"
	"strings"

	"windspire/internal/models"
)

// nonWord matches anything other than an ASCII word character or a
// whitespace rune. Go's \s is ASCII only, so Unicode spaces are listed.
var nonWord = regexp.MustCompile(`[^\w\s\p{Zs}\x{2028}\x{2029}\x{feff}]`)

// NormalizeTitle lowercases title and strips everything that is not a
// word character or whitespace.
func NormalizeTitle(title string) string {
	return nonWord.ReplaceAllString(strings.ToLower(title), "")
}

type Group struct {
	Title string           `json:"title"`
	Items []models.Content `json:"items"`
}

// FindDuplicates groups items by normalized title and returns the groups
// with more than one member, in order of first appearance. Each group is
// named after its first item.
func FindDuplicates(items []models.Content) []Group {
	index := map[string]int{}
	var groups []Group
	for _, it := range items {
		key := NormalizeTitle(it.Title)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group{Title: it.Title})
		}
		groups[i].Items = append(groups[i].Items, it)
	}

	out := []Group{}
	for _, g := range groups {
		if len(g.Items) > 1 {
			out = append(out, g)
		}
	}
	return out
}
