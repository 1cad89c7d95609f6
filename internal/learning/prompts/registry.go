package prompts

import (
	"fmt"
	"strings"
)

type Template struct {
	Name       PromptName
	Version    int
	SchemaName string
	Schema     func(Input) map[string]any
	System     func(Input) string
	User       func(Input) string
	Validate   Validator
}

// Registry is a Catalog backed by compiled templates.
type Registry struct {
	templates map[PromptName]Template
}

func NewRegistry() *Registry {
	return &Registry{templates: map[PromptName]Template{}}
}

func (r *Registry) Register(t Template) {
	r.templates[t.Name] = t
}

// RegisterSpec compiles and registers s, panicking on a malformed template.
func (r *Registry) RegisterSpec(s Spec) {
	t, err := MakeTemplate(s)
	if err != nil {
		panic(err)
	}
	r.Register(t)
}

func (r *Registry) Build(name PromptName, in Input) (Prompt, error) {
	t, ok := r.templates[name]
	if !ok {
		return Prompt{}, fmt.Errorf("unknown prompt: %s", string(name))
	}
	if t.System == nil || t.User == nil {
		return Prompt{}, fmt.Errorf("prompt %s missing system/user renderers", string(name))
	}
	if t.Validate != nil {
		if err := t.Validate(in); err != nil {
			return Prompt{}, fmt.Errorf("%s: %w", string(name), err)
		}
	}
	p := Prompt{
		Name:       string(t.Name),
		Version:    t.Version,
		SchemaName: strings.TrimSpace(t.SchemaName),
		System:     strings.TrimSpace(t.System(in)),
		User:       strings.TrimSpace(t.User(in)),
	}
	if t.Schema != nil {
		p.Schema = t.Schema(in)
	}
	return p, nil
}

var defaultRegistry = func() *Registry {
	r := NewRegistry()
	registerBuiltins(r)
	return r
}()

// Default is the built-in catalog.
func Default() Catalog {
	return defaultRegistry
}
