package compiler

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/roach88/edix/internal/ir"
)

// Validation error codes (E200-E299)
const (
	ErrDuplicateCode      = "E201" // duplicate code within its scope
	ErrUnknownBackendType = "E202" // backend references an undeclared backend type
	ErrUnknownBackend     = "E203" // exchange type references an undeclared backend
	ErrUnknownWebservice  = "E204" // backend references an undeclared webservice
	ErrInvalidDirection   = "E205" // direction is not inbound/outbound
	ErrInvalidWebservice  = "E206" // webservice protocol or URL is invalid
	ErrInvalidCode        = "E207" // code is empty or not in normalized form
)

// Protocols the webservice adapters know.
var knownProtocols = map[string]bool{
	"http":  true,
	"https": true,
}

// ValidationError represents a catalog validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// ValidationErrors collects every validation failure of a catalog.
type ValidationErrors struct {
	Errors []ValidationError
}

func (e *ValidationErrors) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, ve := range e.Errors {
		msgs[i] = ve.Error()
	}
	return fmt.Sprintf("catalog has %d validation error(s): %s", len(e.Errors), strings.Join(msgs, "; "))
}

// Validate checks a catalog spec.
// Returns all errors found (does not fail-fast).
func Validate(spec ir.CatalogSpec) []ValidationError {
	var errs []ValidationError

	backendTypes := make(map[string]bool)
	for i, bt := range spec.BackendTypes {
		field := fmt.Sprintf("backend_type[%d]", i)
		if bt.Code == "" || ir.NormalizeCode(bt.Code) != bt.Code {
			errs = append(errs, ValidationError{
				Field:   field + ".code",
				Message: fmt.Sprintf("code %q is not normalized", bt.Code),
				Code:    ErrInvalidCode,
			})
		}
		if backendTypes[bt.Code] {
			errs = append(errs, ValidationError{
				Field:   field + ".code",
				Message: fmt.Sprintf("duplicate backend type code: %q", bt.Code),
				Code:    ErrDuplicateCode,
			})
		}
		backendTypes[bt.Code] = true
	}

	webservices := make(map[string]bool)
	for i, ws := range spec.Webservices {
		field := fmt.Sprintf("webservice[%d]", i)
		if webservices[ws.Code] {
			errs = append(errs, ValidationError{
				Field:   field + ".code",
				Message: fmt.Sprintf("duplicate webservice code: %q", ws.Code),
				Code:    ErrDuplicateCode,
			})
		}
		webservices[ws.Code] = true
		errs = append(errs, validateWebservice(field, ws)...)
	}

	backends := make(map[string]bool)
	for i, b := range spec.Backends {
		field := fmt.Sprintf("backend[%d]", i)
		if strings.TrimSpace(b.Code) == "" {
			errs = append(errs, ValidationError{
				Field:   field + ".code",
				Message: "code is required",
				Code:    ErrInvalidCode,
			})
		}
		if backends[b.Code] {
			errs = append(errs, ValidationError{
				Field:   field + ".code",
				Message: fmt.Sprintf("duplicate backend code: %q", b.Code),
				Code:    ErrDuplicateCode,
			})
		}
		backends[b.Code] = true

		if !backendTypes[b.Type] {
			errs = append(errs, ValidationError{
				Field:   field + ".type",
				Message: fmt.Sprintf("backend %q references unknown backend type %q", b.Code, b.Type),
				Code:    ErrUnknownBackendType,
			})
		}
		if b.Webservice != "" && !webservices[b.Webservice] {
			errs = append(errs, ValidationError{
				Field:   field + ".webservice",
				Message: fmt.Sprintf("backend %q references unknown webservice %q", b.Code, b.Webservice),
				Code:    ErrUnknownWebservice,
			})
		}
	}

	exchangeTypes := make(map[string]bool)
	for i, et := range spec.ExchangeTypes {
		field := fmt.Sprintf("exchange_type[%d]", i)
		if strings.TrimSpace(et.Code) == "" {
			errs = append(errs, ValidationError{
				Field:   field + ".code",
				Message: "code is required",
				Code:    ErrInvalidCode,
			})
		}
		key := et.Backend + "/" + et.Code
		if exchangeTypes[key] {
			errs = append(errs, ValidationError{
				Field:   field + ".code",
				Message: fmt.Sprintf("duplicate exchange type %q for backend %q", et.Code, et.Backend),
				Code:    ErrDuplicateCode,
			})
		}
		exchangeTypes[key] = true

		if !backends[et.Backend] {
			errs = append(errs, ValidationError{
				Field:   field + ".backend",
				Message: fmt.Sprintf("exchange type %q references unknown backend %q", et.Code, et.Backend),
				Code:    ErrUnknownBackend,
			})
		}
		if !ir.ValidDirections[et.Direction] {
			errs = append(errs, ValidationError{
				Field:   field + ".direction",
				Message: fmt.Sprintf("invalid direction %q, must be \"inbound\" or \"outbound\"", et.Direction),
				Code:    ErrInvalidDirection,
			})
		}
	}

	return errs
}

func validateWebservice(field string, ws ir.WebserviceConfig) []ValidationError {
	var errs []ValidationError
	if !knownProtocols[ws.Protocol] {
		errs = append(errs, ValidationError{
			Field:   field + ".protocol",
			Message: fmt.Sprintf("unsupported protocol %q", ws.Protocol),
			Code:    ErrInvalidWebservice,
		})
	}
	u, err := url.Parse(ws.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   field + ".url",
			Message: fmt.Sprintf("invalid URL %q", ws.URL),
			Code:    ErrInvalidWebservice,
		})
	}
	if ws.Timeout < 0 {
		errs = append(errs, ValidationError{
			Field:   field + ".timeout",
			Message: "timeout must not be negative",
			Code:    ErrInvalidWebservice,
		})
	}
	return errs
}
