package providers

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/goliatone/go-locsync/pkg/interfaces"
)

const (
	DefaultTone      = "neutral"
	DefaultMaxLength = 100
)

const systemPrompt = "You are a professional localization translator. Preserve placeholders such as {{name}} exactly. Return only the translated text."

var userPrompt = template.Must(template.New("translate").Parse(
	"Translate '{{.Text}}' from {{.SourceLang}} to {{.TargetLang}} with {{.Tone}} tone, max {{.MaxLength}} characters" +
		"{{if .Instructions}}. {{.Instructions}}{{end}}",
))

// PromptInput carries the values rendered into a translation prompt.
type PromptInput struct {
	Text         string
	SourceLang   string
	TargetLang   string
	Tone         string
	MaxLength    int
	Instructions string
}

// RenderPrompt builds the generation request for a translation, applying the
// neutral tone and 100 character defaults when the key template omits them.
func RenderPrompt(input PromptInput) (interfaces.GenerateRequest, error) {
	if strings.TrimSpace(input.Tone) == "" {
		input.Tone = DefaultTone
	}
	if input.MaxLength <= 0 {
		input.MaxLength = DefaultMaxLength
	}
	input.Instructions = strings.TrimSpace(input.Instructions)

	var buf bytes.Buffer
	if err := userPrompt.Execute(&buf, input); err != nil {
		return interfaces.GenerateRequest{}, err
	}
	return interfaces.GenerateRequest{
		System: systemPrompt,
		Prompt: buf.String(),
	}, nil
}
