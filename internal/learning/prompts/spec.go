package prompts

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/yungbote/gradecraft/internal/platform/promptstyle"
)

type Validator func(Input) error

// Spec is the declaration format for a prompt. System and User may be plain strings or
// go templates using {{.Field}} from Input. Schema is optional.
type Spec struct {
	Name       PromptName
	Version    int
	Mode       promptstyle.Mode
	SchemaName string
	Schema     func(Input) map[string]any
	System     string
	User       string
	Validators []Validator
}

var funcs = template.FuncMap{
	"bullets": func(items []string) string {
		var b strings.Builder
		for _, it := range items {
			if it = strings.TrimSpace(it); it != "" {
				b.WriteString("- " + it + "\n")
			}
		}
		return strings.TrimRight(b.String(), "\n")
	},
}

// MakeTemplate compiles a Spec into a Template.
func MakeTemplate(s Spec) (Template, error) {
	if strings.TrimSpace(string(s.Name)) == "" {
		return Template{}, fmt.Errorf("missing prompt name")
	}
	if s.Version <= 0 {
		return Template{}, fmt.Errorf("invalid version for %s", s.Name)
	}
	if s.Schema != nil && strings.TrimSpace(s.SchemaName) == "" {
		return Template{}, fmt.Errorf("missing schema name for %s", s.Name)
	}
	sysT, err := template.New("system").Funcs(funcs).Option("missingkey=zero").Parse(s.System)
	if err != nil {
		return Template{}, fmt.Errorf("%s system template parse: %w", s.Name, err)
	}
	userT, err := template.New("user").Funcs(funcs).Option("missingkey=zero").Parse(s.User)
	if err != nil {
		return Template{}, fmt.Errorf("%s user template parse: %w", s.Name, err)
	}
	render := func(t *template.Template, in Input) string {
		var b bytes.Buffer
		_ = t.Execute(&b, in)
		return strings.TrimSpace(b.String())
	}
	mode := s.Mode
	tt := Template{
		Name:       s.Name,
		Version:    s.Version,
		SchemaName: s.SchemaName,
		Schema:     s.Schema,
		System: func(in Input) string {
			sys := render(sysT, in)
			if mode == "" {
				return sys
			}
			return promptstyle.ApplySystem(sys, mode, in.GradeLabel)
		},
		User: func(in Input) string { return render(userT, in) },
	}
	if len(s.Validators) > 0 {
		tt.Validate = func(in Input) error {
			for _, v := range s.Validators {
				if v == nil {
					continue
				}
				if err := v(in); err != nil {
					return err
				}
			}
			return nil
		}
	}
	return tt, nil
}

func requireTopic(in Input) error {
	if strings.TrimSpace(in.Topic) == "" {
		return fmt.Errorf("topic is required")
	}
	return nil
}
