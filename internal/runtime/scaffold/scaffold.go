// Package scaffold generates listener source stubs for event types.
package scaffold

import (
	"bytes"
	"errors"
	"fmt"
	"go/format"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/iancoleman/strcase"
)

// ErrListenerExists is returned when the target file exists and Force is off.
var ErrListenerExists = errors.New("listener already exists")

// Options describe the listener to generate.
type Options struct {
	// Event is the event type, optionally qualified by its import path:
	// "OrderPlaced" or "github.com/acme/shop/events.OrderPlaced".
	Event string
	// Name overrides the listener type name (default <Event>Listener).
	Name    string
	Package string
	Dir     string
	Force   bool
}

// Listener is the rendered stub.
type Listener struct {
	Path   string
	Name   string
	Source []byte
}

type stubData struct {
	Package    string
	Name       string
	EventType  string
	EventRef   string
	ImportPath string
	ListenerID string
}

var stub = template.Must(template.New("listener").Parse(`package {{.Package}}

import (
	"context"
{{if .ImportPath}}
	"{{.ImportPath}}"
{{end}}
	"github.com/drblury/ingressflow"
)

// {{.Name}} handles {{.EventType}} events delivered by the ingress.
type {{.Name}} struct {
	Logger ingressflow.ServiceLogger
}

// Handle is called once per dispatched {{.EventType}}.
func (l *{{.Name}}) Handle(ctx context.Context, event {{.EventRef}}) error {
	l.Logger.Info("Handling {{.EventType}}", ingressflow.LogFields{
		"correlation_id": ingressflow.CorrelationID(ctx),
		"inbound":        ingressflow.IsInbound(ctx),
	})
	return nil
}

// Register{{.Name}} attaches the listener to svc.
func Register{{.Name}}(svc *ingressflow.Service, l *{{.Name}}) error {
	return ingressflow.Listen(svc, "{{.ListenerID}}", l.Handle)
}
`))

// Render builds the stub for opts without touching the filesystem.
func Render(opts Options) (Listener, error) {
	data, err := stubDataFor(opts)
	if err != nil {
		return Listener{}, err
	}

	var buf bytes.Buffer
	if err := stub.Execute(&buf, data); err != nil {
		return Listener{}, fmt.Errorf("render listener: %w", err)
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return Listener{}, fmt.Errorf("format listener: %w", err)
	}

	dir := opts.Dir
	if dir == "" {
		dir = data.Package
	}
	return Listener{
		Path:   filepath.Join(dir, strcase.ToSnake(data.Name)+".go"),
		Name:   data.Name,
		Source: src,
	}, nil
}

// Generate renders the stub and writes it, creating the directory.
func Generate(opts Options) (Listener, error) {
	l, err := Render(opts)
	if err != nil {
		return Listener{}, err
	}
	if _, err := os.Stat(l.Path); err == nil && !opts.Force {
		return Listener{}, fmt.Errorf("%w: %s", ErrListenerExists, l.Path)
	}
	if err := os.MkdirAll(filepath.Dir(l.Path), 0o755); err != nil {
		return Listener{}, err
	}
	if err := os.WriteFile(l.Path, l.Source, 0o644); err != nil {
		return Listener{}, err
	}
	return l, nil
}

func stubDataFor(opts Options) (stubData, error) {
	event := strings.TrimSpace(opts.Event)
	if event == "" {
		return stubData{}, errors.New("event type is required")
	}

	importPath, eventType := "", event
	if i := strings.LastIndex(event, "."); i >= 0 {
		importPath, eventType = event[:i], event[i+1:]
	}
	if !isIdentifier(eventType) {
		return stubData{}, fmt.Errorf("invalid event type %q", event)
	}

	pkg := opts.Package
	if pkg == "" {
		pkg = "listeners"
	}
	if !isIdentifier(pkg) {
		return stubData{}, fmt.Errorf("invalid package name %q", pkg)
	}

	name := opts.Name
	if name == "" {
		name = eventType + "Listener"
	}
	if !isIdentifier(name) {
		return stubData{}, fmt.Errorf("invalid listener name %q", name)
	}

	ref := eventType
	if importPath != "" {
		ref = filepath.Base(importPath) + "." + eventType
	}

	return stubData{
		Package:    pkg,
		Name:       name,
		EventType:  eventType,
		EventRef:   ref,
		ImportPath: importPath,
		ListenerID: strcase.ToKebab(name),
	}, nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
