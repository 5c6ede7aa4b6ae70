// Package strategies provides the built-in exchange components.
//
// Each component is registered under a usage key equal to its name, so a
// catalog wires it by naming it in an exchange type's components block:
//
//	components: {
//		generate: "template.generate"
//		send:     "webservice.send"
//	}
//
// The set is small on purpose: the components move bytes and check
// their shape. Business parsing belongs to an application's own
// Processor.
package strategies
