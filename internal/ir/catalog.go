package ir

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Catalog is the immutable exchange configuration loaded at process start.
//
// Construct it with NewCatalog; the maps are private so nothing can mutate
// the configuration once the engine is running.
type Catalog struct {
	backendTypes  map[string]BackendType
	backends      map[string]Backend
	exchangeTypes map[string]map[string]ExchangeType // backend -> code -> type
	webservices   map[string]WebserviceConfig
}

// CatalogSpec is the mutable input used to build a Catalog.
type CatalogSpec struct {
	BackendTypes  []BackendType      `json:"backend_types"`
	Backends      []Backend          `json:"backends"`
	ExchangeTypes []ExchangeType     `json:"exchange_types"`
	Webservices   []WebserviceConfig `json:"webservices"`
}

// NewCatalog freezes spec into a Catalog.
// Later entries with a duplicate key replace earlier ones; uniqueness is
// checked by compiler.Validate before this point.
func NewCatalog(spec CatalogSpec) *Catalog {
	c := &Catalog{
		backendTypes:  make(map[string]BackendType, len(spec.BackendTypes)),
		backends:      make(map[string]Backend, len(spec.Backends)),
		exchangeTypes: make(map[string]map[string]ExchangeType),
		webservices:   make(map[string]WebserviceConfig, len(spec.Webservices)),
	}
	for _, bt := range spec.BackendTypes {
		c.backendTypes[bt.Code] = bt
	}
	for _, b := range spec.Backends {
		c.backends[b.Code] = b
	}
	for _, et := range spec.ExchangeTypes {
		byCode, ok := c.exchangeTypes[et.Backend]
		if !ok {
			byCode = make(map[string]ExchangeType)
			c.exchangeTypes[et.Backend] = byCode
		}
		byCode[et.Code] = et
	}
	for _, ws := range spec.Webservices {
		c.webservices[ws.Code] = ws
	}
	return c
}

// Backend returns the backend with the given code.
func (c *Catalog) Backend(code string) (Backend, bool) {
	b, ok := c.backends[code]
	return b, ok
}

// BackendType returns the backend type with the given code.
func (c *Catalog) BackendType(code string) (BackendType, bool) {
	bt, ok := c.backendTypes[code]
	return bt, ok
}

// ExchangeType returns the exchange type code of backend.
func (c *Catalog) ExchangeType(backend, code string) (ExchangeType, bool) {
	et, ok := c.exchangeTypes[backend][code]
	return et, ok
}

// Webservice returns the webservice with the given code.
func (c *Catalog) Webservice(code string) (WebserviceConfig, bool) {
	ws, ok := c.webservices[code]
	return ws, ok
}

// Backends returns all backends sorted by code.
func (c *Catalog) Backends() []Backend {
	out := make([]Backend, 0, len(c.backends))
	for _, b := range c.backends {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// ExchangeTypes returns the exchange types of backend sorted by code.
func (c *Catalog) ExchangeTypes(backend string) []ExchangeType {
	byCode := c.exchangeTypes[backend]
	out := make([]ExchangeType, 0, len(byCode))
	for _, et := range byCode {
		out = append(out, et)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// NormalizeCode turns a human label into a code: "Test new type" -> "test_new_type".
// Accents are stripped (NFKD, combining marks dropped), letters lowercased,
// and every run of other characters collapses to a single underscore.
func NormalizeCode(s string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range norm.NFKD.String(s) {
		switch {
		case unicode.Is(unicode.Mn, r):
			continue
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(unicode.ToLower(r))
		case r == '_' || r == '.':
			if b.Len() > 0 {
				pendingSep = false
				b.WriteRune(r)
			}
		default:
			pendingSep = true
		}
	}
	return strings.Trim(b.String(), "_.")
}
