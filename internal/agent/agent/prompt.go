package agent

import (
	"fmt"
	"strings"
	"text/template"
)

type Prompt struct {
	name string
	tmpl *template.Template
}

// MustPrompt parses a prompt template and panics on error; use it for
// package-level prompts only.
func MustPrompt(name, text string) Prompt {
	p, err := NewPrompt(name, text)
	if err != nil {
		panic(err)
	}
	return p
}

func NewPrompt(name, text string) (Prompt, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return Prompt{}, fmt.Errorf("failed to parse prompt template %s: %w", name, err)
	}
	return Prompt{name: name, tmpl: tmpl}, nil
}

func (p Prompt) Render(args map[string]any) (string, error) {
	if p.tmpl == nil {
		return "", fmt.Errorf("%w: prompt %q is not initialised", ErrEmptySystemPrompt, p.name)
	}

	var buf strings.Builder
	if err := p.tmpl.Execute(&buf, args); err != nil {
		return "", fmt.Errorf("failed to execute prompt template %s: %w", p.name, err)
	}

	return strings.TrimSpace(buf.String()), nil
}
