package llmgateway

import (
	"bytes"
	"fmt"
	"text/template"
	"time"
)

// assistantName identifies this service to itself inside rendered prompts.
const assistantName = "jervis"

// RenderedPrompt is a promptType's system/user messages after template
// rendering.
type RenderedPrompt struct {
	System string
	User   string
}

// promptTemplate is one promptType's system/user template pair.
type promptTemplate struct {
	system *template.Template
	user   *template.Template
}

// TemplateRegistry resolves a promptType name to its compiled templates.
// Stateless after construction — safe for concurrent Render calls.
type TemplateRegistry struct {
	templates map[string]promptTemplate
}

// NewTemplateRegistry compiles system/user template text pairs keyed by
// promptType. Panics on a template parse error: a broken template is a
// programming error caught at startup, not a runtime condition to recover
// from.
func NewTemplateRegistry(sources map[string]struct{ System, User string }) *TemplateRegistry {
	templates := make(map[string]promptTemplate, len(sources))
	for promptType, src := range sources {
		sys := template.Must(template.New(promptType + ".system").Parse(src.System))
		usr := template.Must(template.New(promptType + ".user").Parse(src.User))
		templates[promptType] = promptTemplate{system: sys, user: usr}
	}
	return &TemplateRegistry{templates: templates}
}

// renderValues is what a template body sees: the caller's mappingValues
// plus the temporal/identity fields every prompt gets regardless of type.
type renderValues struct {
	Values         map[string]any
	Now            string
	Assistant      string
	OutputLanguage string
	BackgroundMode bool
}

// Render resolves promptType and renders its system/user templates with
// mappingValues augmented by temporal (Now) and identity (Assistant)
// fields, plus the caller's requested output language and background mode.
func (r *TemplateRegistry) Render(promptType string, mappingValues map[string]any, outputLanguage string, backgroundMode bool) (RenderedPrompt, error) {
	tpl, ok := r.templates[promptType]
	if !ok {
		return RenderedPrompt{}, fmt.Errorf("unknown prompt type %q", promptType)
	}

	values := renderValues{
		Values:         mappingValues,
		Now:            time.Now().UTC().Format(time.RFC3339),
		Assistant:      assistantName,
		OutputLanguage: outputLanguage,
		BackgroundMode: backgroundMode,
	}

	var sysBuf, userBuf bytes.Buffer
	if err := tpl.system.Execute(&sysBuf, values); err != nil {
		return RenderedPrompt{}, fmt.Errorf("render system template for %q: %w", promptType, err)
	}
	if err := tpl.user.Execute(&userBuf, values); err != nil {
		return RenderedPrompt{}, fmt.Errorf("render user template for %q: %w", promptType, err)
	}

	return RenderedPrompt{System: sysBuf.String(), User: userBuf.String()}, nil
}
