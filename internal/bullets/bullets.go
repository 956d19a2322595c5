// Package bullets splits list-shaped content into one item per bullet.
package bullets

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"windspire/internal/models"
)

const (
	minBulletLen   = 10
	maxTitleLen    = 50
	maxBaseLen     = 30
	titleCutLength = 47
)

var (
	// bulletStart matches a line that opens a bullet: "-", "•", "*" or "12."
	// followed by whitespace or the end of the line.
	bulletStart = regexp.MustCompile(`^(?:[-•*]|\d+\.)(?:\s+|$)`)
	// bulletEdge matches a line that closes the previous bullet.
	bulletEdge = regexp.MustCompile(`^(?:[-•*]|\d+\.)`)
)

// Items returns the bullet texts found in body, in order. Each bullet runs
// until the next bullet line, a blank line or the end of the body.
func Items(body string) []string {
	lines := strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n")
	var items []string
	var cur []string
	open := false
	flush := func() {
		if open {
			items = append(items, strings.Join(cur, "\n"))
		}
		cur, open = nil, false
	}
	for _, line := range lines {
		switch {
		case bulletStart.MatchString(line):
			flush()
			loc := bulletStart.FindStringIndex(line)
			cur, open = []string{line[loc[1]:]}, true
		case !open:
		case strings.TrimSpace(line) == "":
			flush()
		case bulletEdge.MatchString(line):
			flush()
		default:
			cur = append(cur, line)
		}
	}
	flush()
	return items
}

// Split turns c into one item per bullet point in its body. Content with
// fewer than two bullets, or whose bullets are all too short, comes back
// unchanged. Split items carry no ID.
func Split(c models.Content) []models.Content {
	items := Items(c.Body)
	if len(items) <= 1 {
		return []models.Content{c}
	}

	base := BaseTitle(c.Title)
	var out []models.Content
	for _, item := range items {
		text := strings.TrimSpace(item)
		if utf8.RuneCountInString(text) < minBulletLen {
			continue
		}
		title := capitalize(truncate(text))
		if n := utf8.RuneCountInString(base); n > 0 && n < maxBaseLen {
			title = base + " - " + title
		}
		next := c
		next.ID = ""
		next.Title = title
		next.Body = text
		next.Summary = models.Summarize(text)
		next.Tags = append([]string(nil), c.Tags...)
		out = append(out, next)
	}
	if len(out) == 0 {
		return []models.Content{c}
	}
	return out
}

// BaseTitle is the part of a list title before its first ":", "-", "–",
// "—" or ".", trimmed.
func BaseTitle(title string) string {
	for i, r := range title {
		if i == 0 {
			continue
		}
		switch r {
		case ':', '-', '–', '—', '.':
			return strings.TrimSpace(title[:i])
		}
	}
	return strings.TrimSpace(title)
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) > maxTitleLen {
		return string(r[:titleCutLength]) + "..."
	}
	return s
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
