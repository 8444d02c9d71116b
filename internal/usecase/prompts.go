package usecase

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed templates/*.txt
var promptTemplates embed.FS

// PromptVersion changes whenever the extraction prompt changes in a way that
// invalidates cached extractions.
const PromptVersion = "extract-v2"

var (
	extractTemplate = mustParse("templates/extract.txt")
	unifyTemplate   = mustParse("templates/unify.txt")
)

type extractPromptData struct {
	Post    string
	MaxTags int
}

type unifyPromptData struct {
	Tags []string
}

func mustParse(name string) *template.Template {
	content, err := promptTemplates.ReadFile(name)
	if err != nil {
		panic(fmt.Sprintf("template not found: %v", err))
	}
	return template.Must(template.New(name).Funcs(template.FuncMap{
		"join": strings.Join,
	}).Parse(string(content)))
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render template: %w", err)
	}
	return buf.String(), nil
}
