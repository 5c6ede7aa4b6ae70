package strategies

import (
	"errors"
	"log/slog"

	"github.com/roach88/edix/internal/component"
	"github.com/roach88/edix/internal/ir"
)

// Usage keys of the built-in components.
const (
	WebserviceSend   = "webservice.send"
	FileReceive      = "file.receive"
	FileSend         = "file.send"
	FileArchive      = "file.archive"
	JSONValidate     = "json.validate"
	XMLValidate      = "xml.validate"
	TemplateGenerate = "template.generate"
)

// Options configures the built-in components.
// Components whose settings are missing are not registered.
type Options struct {
	// Catalog resolves the webservice of a record's backend.
	Catalog *ir.Catalog

	// Inbox is the drop directory read by file.receive.
	Inbox string
	// Outbox is the directory written by file.send.
	Outbox string
	// Archive is the directory written by file.archive.
	Archive string

	JSON JSONOptions
	XML  XMLOptions

	// Templates maps exchange type codes to text/template sources
	// rendered by template.generate.
	Templates map[string]string

	Logger *slog.Logger
}

// Register adds the built-in components to reg.
// webservice.send resolves its adapter from reg at call time, so the
// webservice adapters must be registered in reg as well.
func Register(reg *component.Registry, opts Options) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var comps []component.Component
	if opts.Catalog != nil {
		comps = append(comps, component.Component{
			Name:  WebserviceSend,
			Usage: []string{WebserviceSend},
			Impl:  &WebserviceSender{Catalog: opts.Catalog, Registry: reg, Logger: logger},
		})
	}
	if opts.Inbox != "" {
		comps = append(comps, component.Component{
			Name:  FileReceive,
			Usage: []string{FileReceive},
			Impl:  &FileReceiver{Dir: opts.Inbox},
		})
	}
	if opts.Outbox != "" {
		comps = append(comps, component.Component{
			Name:  FileSend,
			Usage: []string{FileSend},
			Impl:  &FileSender{Dir: opts.Outbox},
		})
	}
	if opts.Archive != "" {
		comps = append(comps, component.Component{
			Name:  FileArchive,
			Usage: []string{FileArchive},
			Impl:  &FileArchiver{Dir: opts.Archive},
		})
	}
	comps = append(comps,
		component.Component{
			Name:  JSONValidate,
			Usage: []string{JSONValidate},
			Impl:  &JSONValidator{Options: opts.JSON},
		},
		component.Component{
			Name:  XMLValidate,
			Usage: []string{XMLValidate},
			Impl:  &XMLValidator{Options: opts.XML},
		},
	)
	if len(opts.Templates) > 0 {
		g, err := NewTemplateGenerator(opts.Templates)
		if err != nil {
			return err
		}
		comps = append(comps, component.Component{
			Name:  TemplateGenerate,
			Usage: []string{TemplateGenerate},
			Impl:  g,
		})
	}

	var errs []error
	for _, c := range comps {
		if err := reg.Register(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
