package cli

import (
	"errors"
	"fmt"
	"os"

	"cuelang.org/go/cue/token"

	"github.com/roach88/edix/internal/compiler"
	"github.com/roach88/edix/internal/ir"
)

// LoadResult is a loaded and compiled catalog.
type LoadResult struct {
	Spec      ir.CatalogSpec
	FileCount int // Number of CUE files found

	// Errors are the validation errors of Spec. Catalog is nil unless
	// Errors is empty.
	Errors  []compiler.ValidationError
	Catalog *ir.Catalog
}

// LoadError represents an error that occurred while loading a catalog.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadCatalogDir loads, compiles and validates the CUE catalog in dir.
// A returned error is always a *LoadError; validation failures are
// reported in LoadResult.Errors instead.
func LoadCatalogDir(dir string) (*LoadResult, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("catalog directory not found: %s", dir)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing catalog directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	files, err := compiler.FindCUEFiles(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(files) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	value, _, err := compiler.LoadDir(dir)
	if err != nil {
		return nil, convertCompileError(err, ErrCodeLoadFailed)
	}

	spec, err := compiler.CompileCatalogSpec(value)
	if err != nil {
		return nil, convertCompileError(err, ErrCodeBuildFailed)
	}

	result := &LoadResult{Spec: spec, FileCount: len(files)}
	result.Errors = compiler.Validate(spec)
	if len(result.Errors) == 0 {
		if len(spec.Backends) == 0 {
			result.Errors = append(result.Errors, compiler.ValidationError{
				Field:   "backend",
				Message: "no backends declared in catalog",
				Code:    ErrCodeGeneric,
			})
		} else {
			result.Catalog = ir.NewCatalog(spec)
		}
	}
	return result, nil
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, fallback string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field, fallback),
			Message: compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{Code: fallback, Message: err.Error()}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build or compile failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeConfig      = "E008" // Runtime config could not be loaded
	ErrCodeStore       = "E009" // Record store error

	// Catalog field errors
	ErrCodeCUE          = "E101" // CUE evaluation error
	ErrCodeMissingField = "E102" // Required field missing or empty
	ErrCodeInvalidField = "E103" // Invalid direction or duration

	// Lifecycle errors
	ErrCodeInvalidState   = "E301" // Operation not allowed in the record's state
	ErrCodeStrategyFailed = "E302" // Strategy ran and failed
	ErrCodeUnknownType    = "E303" // Exchange type not declared
	ErrCodeRecordNotFound = "E304" // No record with the given ID
	ErrCodeDispatch       = "E305" // No or several components answer a usage
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field, fallback string) string {
	switch field {
	case "cue":
		return ErrCodeCUE
	case "type", "protocol", "url":
		return ErrCodeMissingField
	case "direction", "timeout":
		return ErrCodeInvalidField
	default:
		return fallback
	}
}
