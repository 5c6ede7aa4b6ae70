package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/edix/internal/ir"
)

func validSpec() ir.CatalogSpec {
	return ir.CatalogSpec{
		BackendTypes: []ir.BackendType{{Code: "demo_type", Name: "Demo"}},
		Webservices:  []ir.WebserviceConfig{{Code: "ws", Protocol: "https", URL: "https://partner.example/api"}},
		Backends:     []ir.Backend{{Code: "demo", Type: "demo_type", Webservice: "ws"}},
		ExchangeTypes: []ir.ExchangeType{
			{Code: "out", Backend: "demo", Direction: ir.DirectionOutbound},
			{Code: "in", Backend: "demo", Direction: ir.DirectionInbound},
		},
	}
}

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidateValid(t *testing.T) {
	assert.Empty(t, Validate(validSpec()))
}

func TestValidateDuplicateBackendTypeCode(t *testing.T) {
	spec := validSpec()
	spec.BackendTypes = append(spec.BackendTypes, ir.BackendType{Code: ir.NormalizeCode("Demo type")})

	errs := Validate(spec)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrDuplicateCode, errs[0].Code)
	assert.Equal(t, "backend_type[1].code", errs[0].Field)
}

func TestValidateUnnormalizedBackendTypeCode(t *testing.T) {
	spec := validSpec()
	spec.BackendTypes = append(spec.BackendTypes, ir.BackendType{Code: "Other Type"})

	errs := Validate(spec)
	assert.Equal(t, []string{ErrInvalidCode}, codes(errs))
}

func TestValidateDuplicateExchangeTypePerBackend(t *testing.T) {
	spec := validSpec()
	spec.ExchangeTypes = append(spec.ExchangeTypes, ir.ExchangeType{Code: "out", Backend: "demo", Direction: ir.DirectionInbound})

	errs := Validate(spec)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrDuplicateCode, errs[0].Code)
	assert.Contains(t, errs[0].Message, `"out"`)
}

func TestValidateSameExchangeCodeDifferentBackends(t *testing.T) {
	spec := validSpec()
	spec.Backends = append(spec.Backends, ir.Backend{Code: "other", Type: "demo_type"})
	spec.ExchangeTypes = append(spec.ExchangeTypes, ir.ExchangeType{Code: "out", Backend: "other", Direction: ir.DirectionOutbound})

	assert.Empty(t, Validate(spec))
}

func TestValidateDuplicateBackend(t *testing.T) {
	spec := validSpec()
	spec.Backends = append(spec.Backends, ir.Backend{Code: "demo", Type: "demo_type"})

	assert.Equal(t, []string{ErrDuplicateCode}, codes(Validate(spec)))
}

func TestValidateUnknownReferences(t *testing.T) {
	spec := validSpec()
	spec.Backends[0].Type = "nope"
	spec.Backends[0].Webservice = "nope"
	spec.ExchangeTypes[0].Backend = "nope"

	errs := Validate(spec)
	assert.ElementsMatch(t, []string{ErrUnknownBackendType, ErrUnknownWebservice, ErrUnknownBackend}, codes(errs))
}

func TestValidateDirection(t *testing.T) {
	spec := validSpec()
	spec.ExchangeTypes[0].Direction = "both"

	errs := Validate(spec)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrInvalidDirection, errs[0].Code)
	assert.Equal(t, "exchange_type[0].direction", errs[0].Field)
}

func TestValidateWebservice(t *testing.T) {
	tests := []struct {
		name string
		ws   ir.WebserviceConfig
		want int
	}{
		{"valid http", ir.WebserviceConfig{Code: "ws", Protocol: "http", URL: "http://localhost:8069"}, 0},
		{"unknown protocol", ir.WebserviceConfig{Code: "ws", Protocol: "gopher", URL: "http://localhost"}, 1},
		{"relative url", ir.WebserviceConfig{Code: "ws", Protocol: "http", URL: "/api"}, 1},
		{"both bad", ir.WebserviceConfig{Code: "ws", Protocol: "", URL: ""}, 2},
		{"negative timeout", ir.WebserviceConfig{Code: "ws", Protocol: "http", URL: "http://x", Timeout: -1}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := validSpec()
			spec.Webservices = []ir.WebserviceConfig{tt.ws}
			errs := Validate(spec)
			assert.Len(t, errs, tt.want)
			for _, e := range errs {
				assert.Equal(t, ErrInvalidWebservice, e.Code)
			}
		})
	}
}

func TestValidateCollectsAll(t *testing.T) {
	spec := ir.CatalogSpec{
		Backends:      []ir.Backend{{Code: "b", Type: "t"}},
		ExchangeTypes: []ir.ExchangeType{{Code: "x", Backend: "c", Direction: "up"}},
	}
	errs := Validate(spec)
	assert.Equal(t, []string{ErrUnknownBackendType, ErrUnknownBackend, ErrInvalidDirection}, codes(errs))
}

func TestValidationErrorFormat(t *testing.T) {
	e := ValidationError{Field: "backend[0].type", Message: "bad", Code: ErrUnknownBackendType}
	assert.Equal(t, "[E202] backend[0].type: bad", e.Error())
}
