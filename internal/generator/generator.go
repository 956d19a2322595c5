// Package generator turns prompts into draft content items using an
// external text-generation model.
package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"windspire/internal/models"
)

type Request struct {
	Model        string
	SystemPrompt string
	Prompt       string
	// JSON asks the model to answer with application/json.
	JSON bool
}

type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Draft is one generated item before it is stored.
type Draft struct {
	Title   string   `json:"title"`
	Body    string   `json:"body"`
	Summary string   `json:"summary"`
	Tags    []string `json:"tags"`
}

var (
	ErrEmpty    = errors.New("model returned no content")
	ErrDisabled = errors.New("text generation is not configured")
)

// Disabled stands in when no API key is configured.
type Disabled struct{}

func (Disabled) Generate(context.Context, Request) (string, error) {
	return "", ErrDisabled
}

// ParseDrafts reads a list of drafts from a model answer. The answer may
// be a JSON array, a single object, an object wrapping an array under
// "items"/"content"/"hacks", or plain text. Plain text becomes one draft
// whose title is its first line. JSON that holds no draft is ErrEmpty.
func ParseDrafts(text string) ([]Draft, error) {
	raw := stripFences(text)
	if raw == "" {
		return nil, ErrEmpty
	}

	var list []Draft
	if err := json.Unmarshal([]byte(raw), &list); err == nil {
		return clean(list)
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &wrapped); err == nil {
		for _, key := range []string{"items", "content", "hacks", "tips"} {
			if inner, ok := wrapped[key]; ok {
				if err := json.Unmarshal(inner, &list); err == nil {
					return clean(list)
				}
			}
		}
		var one Draft
		if err := json.Unmarshal([]byte(raw), &one); err == nil && one.Body != "" {
			return clean([]Draft{one})
		}
	}
	if json.Valid([]byte(raw)) {
		return nil, fmt.Errorf("parse drafts: no draft in JSON answer: %w", ErrEmpty)
	}

	title, body, _ := strings.Cut(raw, "\n")
	body = strings.TrimSpace(body)
	if body == "" {
		body = title
	}
	return clean([]Draft{{Title: strings.Trim(title, "# "), Body: body}})
}

// ParseDraft reads exactly one draft, as returned by a rewrite.
func ParseDraft(text string) (Draft, error) {
	drafts, err := ParseDrafts(text)
	if err != nil {
		return Draft{}, err
	}
	return drafts[0], nil
}

func clean(list []Draft) ([]Draft, error) {
	out := list[:0]
	for _, d := range list {
		d.Title = strings.TrimSpace(d.Title)
		d.Body = strings.TrimSpace(d.Body)
		d.Summary = strings.TrimSpace(d.Summary)
		if d.Title == "" || d.Body == "" {
			continue
		}
		if d.Summary == "" {
			d.Summary = models.Summarize(d.Body)
		}
		if d.Tags == nil {
			d.Tags = []string{}
		}
		out = append(out, d)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("parse drafts: %w", ErrEmpty)
	}
	return out, nil
}

func stripFences(text string) string {
	t := strings.TrimSpace(text)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	t = strings.TrimPrefix(t, "```")
	if nl := strings.IndexByte(t, '\n'); nl >= 0 {
		t = t[nl+1:]
	}
	t = strings.TrimSuffix(strings.TrimSpace(t), "```")
	return strings.TrimSpace(t)
}
