package strategies

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/roach88/edix/internal/ir"
)

// TemplateData is the value templates are executed with.
type TemplateData struct {
	Record  *ir.ExchangeRecord
	Related ir.EntityRef
}

// TemplateGenerator renders the outbound payload from a text/template
// chosen by exchange type code.
type TemplateGenerator struct {
	templates map[string]*template.Template
}

// NewTemplateGenerator parses sources, keyed by exchange type code.
func NewTemplateGenerator(sources map[string]string) (*TemplateGenerator, error) {
	g := &TemplateGenerator{templates: make(map[string]*template.Template, len(sources))}
	funcs := template.FuncMap{
		"upper": strings.ToUpper,
		"lower": strings.ToLower,
	}
	for code, src := range sources {
		t, err := template.New(code).Funcs(funcs).Option("missingkey=error").Parse(src)
		if err != nil {
			return nil, fmt.Errorf("template %q: %w", code, err)
		}
		g.templates[code] = t
	}
	return g, nil
}

func (g *TemplateGenerator) Generate(ctx context.Context, rec *ir.ExchangeRecord) ([]byte, error) {
	t, ok := g.templates[rec.Type]
	if !ok {
		return nil, fmt.Errorf("no template for exchange type %q", rec.Type)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, TemplateData{Record: rec, Related: rec.Related}); err != nil {
		return nil, fmt.Errorf("render template %q: %w", rec.Type, err)
	}
	return buf.Bytes(), nil
}
