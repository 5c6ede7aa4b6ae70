package compiler

import (
	"fmt"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/edix/internal/ir"
)

// CompileCatalog compiles and validates a catalog value.
// Validation failures are returned as *ValidationErrors.
func CompileCatalog(v cue.Value) (*ir.Catalog, error) {
	spec, err := CompileCatalogSpec(v)
	if err != nil {
		return nil, err
	}
	if errs := Validate(spec); len(errs) > 0 {
		return nil, &ValidationErrors{Errors: errs}
	}
	return ir.NewCatalog(spec), nil
}

// CompileCatalogSpec parses a CUE value into a CatalogSpec without validating it.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// Entries are emitted in CUE field order.
func CompileCatalogSpec(v cue.Value) (ir.CatalogSpec, error) {
	var spec ir.CatalogSpec
	if err := v.Err(); err != nil {
		return spec, formatCUEError(err)
	}

	err := eachField(v, "backend_type", func(label string, bv cue.Value) error {
		bt, err := compileBackendType(label, bv)
		if err != nil {
			return err
		}
		spec.BackendTypes = append(spec.BackendTypes, bt)
		return nil
	})
	if err != nil {
		return spec, err
	}

	err = eachField(v, "webservice", func(label string, wv cue.Value) error {
		ws, err := compileWebservice(label, wv)
		if err != nil {
			return err
		}
		spec.Webservices = append(spec.Webservices, ws)
		return nil
	})
	if err != nil {
		return spec, err
	}

	err = eachField(v, "backend", func(label string, bv cue.Value) error {
		b, err := compileBackend(label, bv)
		if err != nil {
			return err
		}
		spec.Backends = append(spec.Backends, b)
		return nil
	})
	if err != nil {
		return spec, err
	}

	err = eachField(v, "exchange_type", func(backend string, byBackend cue.Value) error {
		iter, err := byBackend.Fields()
		if err != nil {
			return formatCUEError(err)
		}
		for iter.Next() {
			et, err := compileExchangeType(backend, iter.Selector().Unquoted(), iter.Value())
			if err != nil {
				return err
			}
			spec.ExchangeTypes = append(spec.ExchangeTypes, et)
		}
		return nil
	})
	if err != nil {
		return spec, err
	}

	return spec, nil
}

func compileBackendType(label string, v cue.Value) (ir.BackendType, error) {
	bt := ir.BackendType{Name: label}

	code, err := optionalString(v, "code")
	if err != nil {
		return bt, err
	}
	if code == "" {
		code = label
	}
	bt.Code = ir.NormalizeCode(code)

	name, err := optionalString(v, "name")
	if err != nil {
		return bt, err
	}
	if name != "" {
		bt.Name = name
	}
	return bt, nil
}

func compileWebservice(label string, v cue.Value) (ir.WebserviceConfig, error) {
	ws := ir.WebserviceConfig{Code: label}
	var err error

	if ws.Protocol, err = requiredString(v, "protocol"); err != nil {
		return ws, err
	}
	if ws.URL, err = requiredString(v, "url"); err != nil {
		return ws, err
	}
	if ws.ContentType, err = optionalString(v, "content_type"); err != nil {
		return ws, err
	}
	if ws.Username, err = optionalString(v, "username"); err != nil {
		return ws, err
	}
	if ws.Password, err = optionalString(v, "password"); err != nil {
		return ws, err
	}

	timeout, err := optionalString(v, "timeout")
	if err != nil {
		return ws, err
	}
	if timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return ws, &CompileError{
				Field:   "timeout",
				Message: fmt.Sprintf("invalid duration %q", timeout),
				Pos:     v.LookupPath(cue.ParsePath("timeout")).Pos(),
			}
		}
		ws.Timeout = d
	}
	return ws, nil
}

func compileBackend(label string, v cue.Value) (ir.Backend, error) {
	b := ir.Backend{Code: label, Name: label}
	var err error

	name, err := optionalString(v, "name")
	if err != nil {
		return b, err
	}
	if name != "" {
		b.Name = name
	}

	typ, err := requiredString(v, "type")
	if err != nil {
		return b, err
	}
	b.Type = ir.NormalizeCode(typ)

	if b.FilenamePrefix, err = optionalString(v, "filename_prefix"); err != nil {
		return b, err
	}
	if b.Webservice, err = optionalString(v, "webservice"); err != nil {
		return b, err
	}
	return b, nil
}

func compileExchangeType(backend, code string, v cue.Value) (ir.ExchangeType, error) {
	et := ir.ExchangeType{Code: code, Name: code, Backend: backend}
	var err error

	name, err := optionalString(v, "name")
	if err != nil {
		return et, err
	}
	if name != "" {
		et.Name = name
	}

	direction, err := requiredString(v, "direction")
	if err != nil {
		return et, err
	}
	et.Direction = ir.Direction(direction)
	if !ir.ValidDirections[et.Direction] {
		return et, &CompileError{
			Field:   "direction",
			Message: fmt.Sprintf("invalid direction %q, must be \"inbound\" or \"outbound\"", direction),
			Pos:     v.LookupPath(cue.ParsePath("direction")).Pos(),
		}
	}

	if et.FileExt, err = optionalString(v, "file_ext"); err != nil {
		return et, err
	}
	if et.FilenamePattern, err = optionalString(v, "filename_pattern"); err != nil {
		return et, err
	}

	cv := v.LookupPath(cue.ParsePath("components"))
	if cv.Exists() {
		fields := []struct {
			name string
			dst  *string
		}{
			{"generate", &et.Components.Generate},
			{"send", &et.Components.Send},
			{"receive", &et.Components.Receive},
			{"validate", &et.Components.Validate},
			{"process", &et.Components.Process},
		}
		for _, f := range fields {
			if *f.dst, err = optionalString(cv, f.name); err != nil {
				return et, err
			}
		}
	}
	return et, nil
}

// eachField calls fn for every field of the struct at path, if present.
func eachField(v cue.Value, path string, fn func(label string, v cue.Value) error) error {
	sv := v.LookupPath(cue.ParsePath(path))
	if !sv.Exists() {
		return nil
	}
	iter, err := sv.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		if err := fn(iter.Selector().Unquoted(), iter.Value()); err != nil {
			return err
		}
	}
	return nil
}

func requiredString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", &CompileError{
			Field:   field,
			Message: field + " is required",
			Pos:     v.Pos(),
		}
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	if s == "" {
		return "", &CompileError{
			Field:   field,
			Message: field + " must be non-empty",
			Pos:     fv.Pos(),
		}
	}
	return s, nil
}

func optionalString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
