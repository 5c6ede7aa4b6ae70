package engine

import (
	"strings"
	"time"

	"github.com/roach88/edix/internal/ir"
)

// DefaultFilenamePattern is used when an exchange type declares none.
const DefaultFilenamePattern = "{prefix}-{type}-{dt}.{ext}"

// filenameTimeLayout renders {dt}, e.g. 2020-10-21-10-00-00.
const filenameTimeLayout = "2006-01-02-15-04-05"

// FilenamePrefix returns the backend's filename prefix, "EDI_EXC_<CODE>" by default.
func FilenamePrefix(b ir.Backend) string {
	if b.FilenamePrefix != "" {
		return b.FilenamePrefix
	}
	return "EDI_EXC_" + strings.ToUpper(b.Code)
}

// BuildFilename expands the exchange type's filename pattern.
//
// Placeholders: {prefix}, {backend}, {type}, {id}, {dt}, {ext}. An empty
// extension drops the trailing separator.
func BuildFilename(b ir.Backend, t ir.ExchangeType, recordID string, at time.Time) string {
	pattern := t.FilenamePattern
	if pattern == "" {
		pattern = DefaultFilenamePattern
	}
	name := strings.NewReplacer(
		"{prefix}", FilenamePrefix(b),
		"{backend}", b.Code,
		"{type}", t.Code,
		"{id}", recordID,
		"{dt}", at.UTC().Format(filenameTimeLayout),
		"{ext}", strings.TrimPrefix(t.FileExt, "."),
	).Replace(pattern)
	return strings.TrimRight(name, ".")
}
