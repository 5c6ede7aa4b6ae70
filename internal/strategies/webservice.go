package strategies

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/roach88/edix/internal/component"
	"github.com/roach88/edix/internal/ir"
	"github.com/roach88/edix/internal/webservice"
)

// WebserviceSender POSTs the record file to its backend's webservice.
//
// The webservice URL may use the placeholders {backend}, {type},
// {record} and {filename}.
type WebserviceSender struct {
	Catalog  *ir.Catalog
	Registry *component.Registry
	Logger   *slog.Logger
}

func (s *WebserviceSender) Send(ctx context.Context, rec *ir.ExchangeRecord) error {
	be, ok := s.Catalog.Backend(rec.Backend)
	if !ok {
		return fmt.Errorf("unknown backend %q", rec.Backend)
	}
	if be.Webservice == "" {
		return fmt.Errorf("backend %q has no webservice", be.Code)
	}
	cfg, ok := s.Catalog.Webservice(be.Webservice)
	if !ok {
		return fmt.Errorf("unknown webservice %q", be.Webservice)
	}

	_, err := webservice.Call(ctx, s.Registry, cfg, http.MethodPost, webservice.Request{
		Params: map[string]string{
			"backend":  rec.Backend,
			"type":     rec.Type,
			"record":   rec.ID,
			"filename": rec.Filename,
		},
		Headers: map[string]string{"X-Edi-Filename": rec.Filename},
		Body:    rec.File,
	})
	if err != nil {
		return err
	}
	if s.Logger != nil {
		s.Logger.Debug("payload posted", "record", rec.ID, "webservice", cfg.Code, "bytes", len(rec.File))
	}
	return nil
}
