// Package listener holds the unit of work threaded through the listener
// middleware chain for one inbound message.
package listener

import (
	"github.com/drblury/ingressflow/internal/runtime/logging"
	"github.com/drblury/ingressflow/internal/runtime/metadata"
	"github.com/drblury/ingressflow/internal/runtime/registry"
)

// Context carries one message through the pipeline. It is owned by a single
// request and never shared between goroutines.
type Context struct {
	id           string
	subscription registry.Subscription
	event        any
	payload      map[string]any
	metadata     metadata.Metadata
	request      *Request
	attempts     int
	logger       logging.ServiceLogger
}

// Params are the values a Context is built from.
type Params struct {
	ID           string
	Subscription registry.Subscription
	Event        any
	Payload      map[string]any
	Metadata     metadata.Metadata
	Request      *Request
	Logger       logging.ServiceLogger
}

// New builds a Context with a zero attempt counter.
func New(p Params) *Context {
	md := p.Metadata.Clone()
	logger := p.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Context{
		id:           p.ID,
		subscription: p.Subscription,
		event:        p.Event,
		payload:      p.Payload,
		metadata:     md,
		request:      p.Request,
		logger:       logger,
	}
}

func (c *Context) ID() string                          { return c.id }
func (c *Context) Subscription() registry.Subscription { return c.subscription }
func (c *Context) Event() any                          { return c.event }
func (c *Context) Payload() map[string]any             { return c.payload }
func (c *Context) Request() *Request                   { return c.request }
func (c *Context) Attempts() int                       { return c.attempts }
func (c *Context) Logger() logging.ServiceLogger       { return c.logger }

// SetEvent replaces the event; the last middleware to set it owns it.
func (c *Context) SetEvent(event any) { c.event = event }

// Metadata returns a copy of the metadata.
func (c *Context) Metadata() metadata.Metadata { return c.metadata.Clone() }

// MergeMetadata adds or overwrites entries. Entries are never removed.
func (c *Context) MergeMetadata(entries metadata.Metadata) { c.metadata.Merge(entries) }

// IncrementAttempts records one more traversal of the pipeline.
func (c *Context) IncrementAttempts() int {
	c.attempts++
	return c.attempts
}

// SetLogger replaces the logger used for the rest of the pipeline.
func (c *Context) SetLogger(logger logging.ServiceLogger) {
	if logger != nil {
		c.logger = logger
	}
}
