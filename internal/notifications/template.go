package notifications

import (
	"bytes"
	"errors"
	"text/template"
)

const DefaultTemplate = `[{{.Title}}]
{{.Message}}
Priority: {{.Priority}}
Type: {{.Kind}}
{{ if .RelatedID }}Reference: {{.RelatedID}}
{{ end }}Recipient: {{.RecipientID}}`

// Template renders webhook message content.
type Template struct {
	tpl *template.Template
}

// NewTemplate parses a notification template, falling back to DefaultTemplate.
func NewTemplate(tpl string) (*Template, error) {
	if tpl == "" {
		tpl = DefaultTemplate
	}
	parsed, err := template.New("rent-notification").Parse(tpl)
	if err != nil {
		return nil, err
	}
	return &Template{tpl: parsed}, nil
}

// Render applies the template to a notification.
func (t *Template) Render(n Notification) (string, error) {
	if t == nil || t.tpl == nil {
		return "", errors.New("notification template: nil")
	}
	var buf bytes.Buffer
	if err := t.tpl.Execute(&buf, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}
