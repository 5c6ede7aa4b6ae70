package strategies

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/edix/internal/ir"
)

func TestTemplateGenerator(t *testing.T) {
	g, err := NewTemplateGenerator(map[string]string{
		"orders_out": "ref,{{.Related.ID}}\nrecord,{{.Record.ID | upper}}\n",
	})
	require.NoError(t, err)

	out, err := g.Generate(context.Background(), &ir.ExchangeRecord{
		ID:      "rec-0001",
		Type:    "orders_out",
		Related: ir.EntityRef{Kind: "sale.order", ID: "SO042"},
	})
	require.NoError(t, err)
	assert.Equal(t, "ref,SO042\nrecord,REC-0001\n", string(out))
}

func TestTemplateGenerator_UnknownType(t *testing.T) {
	g, err := NewTemplateGenerator(map[string]string{"orders_out": "x"})
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), &ir.ExchangeRecord{Type: "invoices_out"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no template for exchange type "invoices_out"`)
}

func TestTemplateGenerator_ExecError(t *testing.T) {
	g, err := NewTemplateGenerator(map[string]string{"orders_out": "{{.Nope}}"})
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), &ir.ExchangeRecord{Type: "orders_out"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "render template")
}
