package core

import (
	"strings"

	"github.com/Comcast/chatter/match"
	"github.com/Comcast/chatter/template"

	"go.uber.org/zap"
)

// Order says when a tag's children are rendered.
type Order int

const (
	// EagerChildren renders every element child to text before
	// the handler runs.
	EagerChildren Order = iota

	// HandlerFirst runs the handler on the unrendered node.  The
	// handler returns markup, which is then parsed and rendered.
	HandlerFirst
)

func (o Order) String() string {
	switch o {
	case EagerChildren:
		return "eager"
	case HandlerFirst:
		return "handlerFirst"
	}
	return "unknown"
}

// Handler renders a tag.
type Handler interface {
	Render(node *template.Node) string
}

// HandlerFunc is a function that's a Handler.
type HandlerFunc func(node *template.Node) string

func (f HandlerFunc) Render(node *template.Node) string {
	return f(node)
}

// TagSpec describes a custom tag.
type TagSpec struct {
	Order Order

	// New makes a Handler for one occurrence of the tag.
	New func(c *Call) Handler
}

// Call is the context for rendering one template node.
type Call struct {
	Engine  *Engine
	Session *Session
	Query   *match.Query
	Request *Request
	Result  *Result
}

// Process renders a node in the context of this Call.
func (c *Call) Process(node *template.Node) string {
	return c.Engine.Process(node, c)
}

// Logger returns the Engine's logger.
func (c *Call) Logger() *zap.Logger {
	return c.Engine.logger
}

// RegisterTag adds a custom tag.
//
// Names are case-insensitive.  A name that's already used by a
// built-in tag or an earlier registration gives a *DuplicateTagName.
func (e *Engine) RegisterTag(name string, spec TagSpec) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if spec.New == nil {
		return NoConstructor
	}

	e.tagsMu.Lock()
	defer e.tagsMu.Unlock()

	if _, have := builtins[name]; have {
		return &DuplicateTagName{name}
	}
	if _, have := e.tags[name]; have {
		return &DuplicateTagName{name}
	}
	if name == template.RootName {
		return &DuplicateTagName{name}
	}
	e.tags[name] = spec
	e.logger.Debug("registered tag", zap.String("tag", name), zap.Stringer("order", spec.Order))
	return nil
}

func (e *Engine) customTag(name string) (TagSpec, bool) {
	e.tagsMu.RLock()
	spec, have := e.tags[name]
	e.tagsMu.RUnlock()
	return spec, have
}

// Tags returns the names of the custom tags.
func (e *Engine) Tags() []string {
	e.tagsMu.RLock()
	defer e.tagsMu.RUnlock()
	acc := make([]string, 0, len(e.tags))
	for name := range e.tags {
		acc = append(acc, name)
	}
	return acc
}
