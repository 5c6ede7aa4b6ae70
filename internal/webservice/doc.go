// Package webservice is the outbound HTTP collaborator of send strategies.
//
// An Adapter is registered in the component registry under usage
// "webservice.request" and narrowed by the "webservice_protocol"
// constraint, so Call picks the adapter matching a webservice's protocol:
//
//	body, err := webservice.Call(ctx, reg, cfg, http.MethodPost, webservice.Request{
//		Params: map[string]string{"endpoint": "orders"},
//		Body:   rec.File,
//	})
//
// The webservice URL may hold {name} placeholders filled from
// Request.Params. Credentials on the request win over the ones configured
// on the webservice.
package webservice
