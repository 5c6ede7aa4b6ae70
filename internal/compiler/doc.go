// Package compiler turns CUE exchange catalogs into ir.Catalog.
//
// A catalog declares four top-level structs:
//
//	backend_type: "Demo type": { name: "Demo" }
//	webservice: partner_api: { protocol: "http", url: "https://partner.example/{endpoint}" }
//	backend: demo: { name: "Demo", type: "demo_type", webservice: "partner_api" }
//	exchange_type: demo: orders_out: {
//		name:      "Orders out"
//		direction: "outbound"
//		file_ext:  "csv"
//		components: send: "webservice.send"
//	}
//
// Backend type codes are normalized (see ir.NormalizeCode), so the label
// "Demo type" declares code "demo_type". Exchange types are keyed by
// backend code, then exchange type code.
package compiler
