package notify

import (
	"bytes"
	"errors"
	"fmt"
	"text/template"
)

// TemplateText holds the raw text/template sources for every message.
//
// Wrapper receives .Name and .Content, where Content is the rendered inner
// message. The inner templates receive .Name, .Identity and, for Issued,
// .Code.
type TemplateText struct {
	Wrapper    string
	Issued     string
	Ineligible string
	Duplicate  string
	Throttled  string
	Accepted   string
}

// Templates is a parsed TemplateText. It is safe for concurrent use.
type Templates struct {
	wrapper    *template.Template
	issued     *template.Template
	ineligible *template.Template
	duplicate  *template.Template
	throttled  *template.Template
	accepted   *template.Template
}

// MessageData is passed to the inner templates.
type MessageData struct {
	Name     string
	Identity string
	Code     string
}

type wrapperData struct {
	Name    string
	Content string
}

var errEmptyTemplate = errors.New("template text is empty")

// DefaultTemplateText returns the built-in message texts.
func DefaultTemplateText() TemplateText {
	return TemplateText{
		Wrapper: "Hi {{if .Name}}{{.Name}}{{else}}there{{end}},\n\n{{.Content}}\n\nThis is an automated message.\n",
		Issued: "Here is your one-time code:\n\n{{.Code}}\n\n" +
			"Paste it into the membership question to be let in. The code works once.",
		Ineligible: "We could not send you a code because {{.Identity}} is not an eligible address.",
		Duplicate:  "{{.Identity}} has already been used to join. Each address can join once.",
		Throttled:  "You asked for too many codes. Please wait a while and try again.",
		Accepted:   "Your code was accepted and your membership request has been approved. Welcome!",
	}
}

// DefaultTemplates parses DefaultTemplateText.
func DefaultTemplates() *Templates {
	t, err := ParseTemplates(DefaultTemplateText())
	if err != nil {
		panic(fmt.Sprintf("notify: default templates: %v", err))
	}
	return t
}

// ParseTemplates parses every source in text. Missing keys are errors at
// render time.
func ParseTemplates(text TemplateText) (*Templates, error) {
	var t Templates
	sources := []struct {
		name string
		src  string
		dst  **template.Template
	}{
		{"wrapper", text.Wrapper, &t.wrapper},
		{"issued", text.Issued, &t.issued},
		{"ineligible", text.Ineligible, &t.ineligible},
		{"duplicate", text.Duplicate, &t.duplicate},
		{"throttled", text.Throttled, &t.throttled},
		{"accepted", text.Accepted, &t.accepted},
	}
	for _, s := range sources {
		if s.src == "" {
			return nil, fmt.Errorf("%s: %w", s.name, errEmptyTemplate)
		}
		parsed, err := template.New(s.name).Option("missingkey=error").Parse(s.src)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.name, err)
		}
		*s.dst = parsed
	}
	return &t, nil
}

func (t *Templates) render(inner *template.Template, data MessageData) (string, error) {
	var content bytes.Buffer
	if err := inner.Execute(&content, data); err != nil {
		return "", fmt.Errorf("render %s: %w", inner.Name(), err)
	}

	var out bytes.Buffer
	if err := t.wrapper.Execute(&out, wrapperData{Name: data.Name, Content: content.String()}); err != nil {
		return "", fmt.Errorf("render wrapper: %w", err)
	}
	return out.String(), nil
}
