package testutil

import (
	"path/filepath"
	"testing"

	"github.com/roach88/edix/internal/ir"
	"github.com/roach88/edix/internal/store"
)

// Fixture codes used by DemoCatalog.
const (
	DemoBackendType = "demo_type"
	DemoBackend     = "demo"
	DemoOutbound    = "orders_out"
	DemoInbound     = "orders_in"
	DemoWebservice  = "demo_ws"
)

// DemoCatalog returns a catalog with one backend declaring one outbound
// (csv) and one inbound (json) exchange type. wsURL, when set, is used as
// the backend's http webservice endpoint.
func DemoCatalog(wsURL string) *ir.Catalog {
	spec := ir.CatalogSpec{
		BackendTypes: []ir.BackendType{{Code: DemoBackendType, Name: "Demo"}},
		Backends: []ir.Backend{{
			Code: DemoBackend,
			Name: "Demo backend",
			Type: DemoBackendType,
		}},
		ExchangeTypes: []ir.ExchangeType{
			{Code: DemoOutbound, Name: "Orders out", Backend: DemoBackend, Direction: ir.DirectionOutbound, FileExt: "csv"},
			{Code: DemoInbound, Name: "Orders in", Backend: DemoBackend, Direction: ir.DirectionInbound, FileExt: "json"},
		},
	}
	if wsURL != "" {
		spec.Backends[0].Webservice = DemoWebservice
		spec.Webservices = []ir.WebserviceConfig{{
			Code:     DemoWebservice,
			Protocol: "http",
			URL:      wsURL,
		}}
	}
	return ir.NewCatalog(spec)
}

// OpenStore opens a SQLite store in a temp directory, closed on cleanup.
func OpenStore(t testing.TB) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "edix.db"))
	if err != nil {
		t.Fatalf("store.Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}
