// Package prompt compiles the named generation prompts: a shared instruction
// preamble, the rendered template and the JSON schema the answer must follow.
package prompt

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

const (
	Course     = "course"
	Chapter    = "chapter"
	Quiz       = "quiz"
	Flashcards = "flashcards"
	Questions  = "questions"
)

var (
	ErrUnknownTemplate = errors.New("unknown prompt template")
	ErrSchemaMissing   = errors.New("no output schema registered")
)

//go:embed templates/*.md schemas/*.json
var assets embed.FS

const preamble = `Use only the material in the user message as your source. Do not add facts it does not contain.
Answer with a single JSON document that follows the schema below. Write every prose field (descriptions, chapter content, explanations) in Markdown.`

type Compiler struct {
	templates map[string]string
	schemas   map[string]string
}

// NewCompiler loads the embedded templates and schemas.
func NewCompiler() (*Compiler, error) {
	return newCompiler(assets)
}

func newCompiler(fsys fs.FS) (*Compiler, error) {
	templates, err := loadDir(fsys, "templates", ".md")
	if err != nil {
		return nil, err
	}
	schemas, err := loadDir(fsys, "schemas", ".json")
	if err != nil {
		return nil, err
	}
	return &Compiler{templates: templates, schemas: schemas}, nil
}

func loadDir(fsys fs.FS, dir, ext string) (map[string]string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ext {
			continue
		}
		b, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		out[strings.TrimSuffix(e.Name(), ext)] = strings.TrimSpace(string(b))
	}
	return out, nil
}

// Names lists the registered templates.
func (c *Compiler) Names() []string {
	names := make([]string, 0, len(c.templates))
	for n := range c.templates {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Variables lists the placeholders the named template expects.
func (c *Compiler) Variables(name string) ([]string, error) {
	tmpl, ok := c.templates[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTemplate, name)
	}
	return ExtractVariables(tmpl), nil
}

// Compile renders the named template and appends its output schema as a
// fenced json block. The result is sent as the system turn.
func (c *Compiler) Compile(name string, vars map[string]string) (string, error) {
	tmpl, ok := c.templates[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTemplate, name)
	}
	schema, ok := c.schemas[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrSchemaMissing, name)
	}

	body, err := Render(tmpl, vars)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}

	var b strings.Builder
	b.WriteString(preamble)
	b.WriteString("\n\n")
	b.WriteString(body)
	b.WriteString("\n\nJSON schema:\n```json\n")
	b.WriteString(schema)
	b.WriteString("\n```")
	return b.String(), nil
}
