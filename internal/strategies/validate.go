package strategies

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/beevik/etree"

	"github.com/roach88/edix/internal/ir"
)

// JSONOptions configures json.validate.
type JSONOptions struct {
	// RequiredKeys must be present and non-empty.
	RequiredKeys []string
	// ExternalIDKey names the key copied into rec.ExternalIdentifier.
	ExternalIDKey string
}

// JSONValidator checks that content is a JSON object.
type JSONValidator struct {
	Options JSONOptions
}

func (v *JSONValidator) Validate(ctx context.Context, rec *ir.ExchangeRecord, content []byte) error {
	dec := json.NewDecoder(bytes.NewReader(content))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if doc == nil {
		return errors.New("invalid JSON: expected an object")
	}

	for _, key := range v.Options.RequiredKeys {
		if isEmpty(doc[key]) {
			return fmt.Errorf("missing required key %q", key)
		}
	}

	if key := v.Options.ExternalIDKey; key != "" {
		switch id := doc[key].(type) {
		case nil:
		case string:
			rec.ExternalIdentifier = id
		case json.Number:
			rec.ExternalIdentifier = id.String()
		default:
			return fmt.Errorf("key %q must be a string or number", key)
		}
	}
	return nil
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}

// XMLOptions configures xml.validate.
type XMLOptions struct {
	// RootTag, when set, must match the document element.
	RootTag string
	// ExternalIDPath is an etree path whose element text becomes
	// rec.ExternalIdentifier, e.g. "./Header/OrderRef".
	ExternalIDPath string
}

// XMLValidator checks that content is well-formed XML with a root element.
type XMLValidator struct {
	Options XMLOptions
}

func (v *XMLValidator) Validate(ctx context.Context, rec *ir.ExchangeRecord, content []byte) error {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(content); err != nil {
		return fmt.Errorf("invalid XML: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return errors.New("invalid XML: no root element")
	}
	if v.Options.RootTag != "" && root.Tag != v.Options.RootTag {
		return fmt.Errorf("unexpected root element %q, want %q", root.Tag, v.Options.RootTag)
	}

	if path := v.Options.ExternalIDPath; path != "" {
		p, err := etree.CompilePath(path)
		if err != nil {
			return fmt.Errorf("external id path %q: %w", path, err)
		}
		if el := root.FindElementPath(p); el != nil {
			rec.ExternalIdentifier = el.Text()
		}
	}
	return nil
}
