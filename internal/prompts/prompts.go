// Package prompts renders generation prompts and ships the default
// prompt templates.
package prompts

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"windspire/internal/models"
	"windspire/internal/store"
)

//go:embed defaults.yaml
var defaultsYAML []byte

//go:embed categories.yaml
var categoriesYAML []byte

type Default struct {
	Name         string             `yaml:"name"`
	ContentType  models.ContentType `yaml:"content_type"`
	SystemPrompt string             `yaml:"system_prompt"`
	Template     string             `yaml:"template"`
}

// Defaults returns the built-in templates, one per content type.
func Defaults() ([]Default, error) {
	var out []Default
	if err := yaml.Unmarshal(defaultsYAML, &out); err != nil {
		return nil, fmt.Errorf("parse default prompts: %w", err)
	}
	for _, d := range out {
		if err := Validate(d.Template); err != nil {
			return nil, fmt.Errorf("default prompt %q: %w", d.Name, err)
		}
	}
	return out, nil
}

// Data is what a prompt template can reference.
type Data struct {
	Category    string
	ContentType models.ContentType
	Difficulty  models.Difficulty
	Count       int
	Topic       string
}

// sample fills every field so Validate catches references to fields
// Data does not have.
var sample = Data{
	Category:    "Sample",
	ContentType: models.TypeHack,
	Difficulty:  models.Beginner,
	Count:       1,
	Topic:       "sample",
}

// Validate parses tmpl and executes it against sample data.
func Validate(tmpl string) error {
	if strings.TrimSpace(tmpl) == "" {
		return fmt.Errorf("template is empty")
	}
	t, err := template.New("prompt").Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return err
	}
	return t.Execute(io.Discard, sample)
}

func Render(tmpl string, data Data) (string, error) {
	t, err := template.New("prompt").Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("parse prompt: %w", err)
	}
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return strings.TrimSpace(b.String()), nil
}

// Fallback is used when neither a stored template nor the category
// prompt applies.
const Fallback = `Write {{.Count}} unique {{.Difficulty}}-level {{.ContentType}} items for the "{{.Category}}" category.
Return a JSON array of objects with the fields title, body, summary and tags.`

// FromCategory wraps a category's free-text prompt so the answer still
// comes back as structured JSON.
func FromCategory(prompt string) string {
	return strings.TrimSpace(prompt) + `

Write {{.Count}} {{.Difficulty}}-level items. Return a JSON array of objects with the fields title, body, summary and tags.`
}

// Rewrite builds the prompt that asks for a reworded version of an item.
func Rewrite(title, body string) string {
	return fmt.Sprintf(`You are a content rewriting assistant. Take the following content and rewrite it completely
to make it unique while preserving the core information and value. Use different wording,
structure, and examples, but maintain the same overall message and advice.

Original Content:
Title: %s
Body: %s

Rewrite this content to be completely unique. Return your response as valid JSON with
title, body, summary and tags fields.`, title, body)
}

// ImportDefaults stores every built-in template whose name is not taken
// yet and returns the new ids.
func ImportDefaults(ctx context.Context, st *store.Store) ([]string, error) {
	defs, err := Defaults()
	if err != nil {
		return nil, err
	}
	ids := []string{}
	for _, d := range defs {
		exists, err := st.PromptNameExists(ctx, d.Name)
		if err != nil {
			return ids, err
		}
		if exists {
			continue
		}
		p := models.PromptTemplate{
			Name:         d.Name,
			ContentType:  d.ContentType,
			SystemPrompt: strings.TrimSpace(d.SystemPrompt),
			Template:     strings.TrimSpace(d.Template),
			Active:       true,
			IsDefault:    true,
		}
		if err := st.CreatePrompt(ctx, &p); err != nil {
			return ids, fmt.Errorf("import %q: %w", d.Name, err)
		}
		ids = append(ids, p.ID)
	}
	return ids, nil
}

type CategoryPrompt struct {
	Slug   string `yaml:"slug"`
	Prompt string `yaml:"prompt"`
}

// CategoryPrompts returns the built-in prompts for the seeded categories.
func CategoryPrompts() ([]CategoryPrompt, error) {
	var out []CategoryPrompt
	if err := yaml.Unmarshal(categoriesYAML, &out); err != nil {
		return nil, fmt.Errorf("parse category prompts: %w", err)
	}
	for _, cp := range out {
		if err := Validate(FromCategory(cp.Prompt)); err != nil {
			return nil, fmt.Errorf("category prompt %q: %w", cp.Slug, err)
		}
	}
	return out, nil
}

type SeedResult struct {
	UpdatedCategories int      `json:"updatedCategories"`
	NewPrompts        int      `json:"newPrompts"`
	Errors            []string `json:"errors"`
}

// SeedFromFile writes the built-in category prompts onto matching
// categories and imports the default templates. A category that is
// missing or fails to update is reported in Errors and does not stop
// the rest.
func SeedFromFile(ctx context.Context, st *store.Store) (SeedResult, error) {
	res := SeedResult{Errors: []string{}}
	cps, err := CategoryPrompts()
	if err != nil {
		return res, err
	}
	for _, cp := range cps {
		cat, err := st.GetCategoryBySlug(ctx, cp.Slug)
		if errors.Is(err, store.ErrNotFound) {
			res.Errors = append(res.Errors, fmt.Sprintf("category %q not found", cp.Slug))
			continue
		}
		if err != nil {
			return res, err
		}
		text := strings.TrimSpace(cp.Prompt)
		if cat.Prompt == text {
			continue
		}
		cat.Prompt = text
		if err := st.UpdateCategory(ctx, cat); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("category %q: %v", cp.Slug, err))
			continue
		}
		res.UpdatedCategories++
	}

	ids, err := ImportDefaults(ctx, st)
	res.NewPrompts = len(ids)
	if err != nil {
		res.Errors = append(res.Errors, err.Error())
	}
	return res, nil
}
