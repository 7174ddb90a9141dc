package generation

import (
	"bytes"
	"fmt"
	"os"
	"text/template"
)

// defaultPromptTemplate is used when no template path is configured. The
// question text is substituted verbatim; the surrounding instructions keep
// answers short enough to match form fields.
const defaultPromptTemplate = `You are a form-filling assistant. Answer the question below concisely,
with only the answer itself and no explanation.
{{if .Context}}
Context: {{.Context}}
{{end}}
Question: {{.Question}}
`

// promptData carries the values substituted into the prompt template.
type promptData struct {
	Question string
	Context  string
}

// PromptBuilder renders question text into provider prompts from a parsed
// template.
type PromptBuilder struct {
	tmpl *template.Template
}

// NewPromptBuilder parses the template at path, or the built-in default when
// path is empty.
func NewPromptBuilder(path string) (*PromptBuilder, error) {
	content := defaultPromptTemplate
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read prompt template from %s: %v",
				ErrInvalidConfig, path, err)
		}
		content = string(raw)
	}

	tmpl, err := template.New("answer").Parse(content)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse prompt template: %v", ErrInvalidConfig, err)
	}

	return &PromptBuilder{tmpl: tmpl}, nil
}

// Build renders the prompt for a question and optional extra context.
func (b *PromptBuilder) Build(question string, extra string) (string, error) {
	var buf bytes.Buffer
	if err := b.tmpl.Execute(&buf, promptData{Question: question, Context: extra}); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return buf.String(), nil
}
