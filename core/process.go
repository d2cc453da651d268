package core

import (
	"strings"

	"github.com/Comcast/chatter/template"

	"go.uber.org/zap"
)

// Process renders a template node.
//
// The synthetic root concatenates its rendered children.  An element
// with a handler is rendered according to the handler's Order.  An
// element without a handler renders as its inner text.
//
// Nodes are never modified.  Rendering an EagerChildren tag builds a
// new node whose element children are replaced by text.
func (e *Engine) Process(node *template.Node, c *Call) string {
	if c.Request.Expired() {
		return ""
	}

	if node.IsText() {
		return node.Text
	}

	name := strings.ToLower(node.Name)

	if name == template.RootName {
		var acc strings.Builder
		for _, child := range node.Children {
			acc.WriteString(e.Process(child, c))
		}
		return acc.String()
	}

	var (
		order  Order
		render func(*template.Node) string
	)

	if spec, have := e.customTag(name); have {
		order = spec.Order
		render = spec.New(c).Render
	} else if b, have := builtins[name]; have {
		order = b.order()
		render = func(n *template.Node) string {
			return c.builtin(b, n)
		}
	} else {
		return node.InnerText()
	}

	switch order {
	case HandlerFirst:
		out := render(node)
		fragment, err := template.Parse(out)
		if err != nil {
			e.logger.Warn("bad handler markup",
				zap.String("tag", name),
				zap.String("markup", out),
				zap.Error(err))
			return ""
		}
		if !fragment.HasChildren() {
			return fragment.InnerText()
		}
		var acc strings.Builder
		for _, child := range fragment.Children {
			acc.WriteString(e.Process(child, c))
		}
		return acc.String()

	default:
		children := make([]*template.Node, len(node.Children))
		for i, child := range node.Children {
			if child.IsText() {
				children[i] = child
				continue
			}
			children[i] = template.NewText(e.Process(child, c))
		}
		return render(node.WithChildren(children))
	}
}

// parse returns the parsed template, which is cached.
//
// Parsed templates are immutable, so one can be shared by every
// session.
func (e *Engine) parse(src string) (*template.Node, error) {
	if x, have := e.parsed.Load(src); have {
		return x.(*template.Node), nil
	}
	node, err := template.Parse(src)
	if err != nil {
		return nil, err
	}
	e.parsed.Store(src, node)
	return node, nil
}

// render parses and processes a template.
func (e *Engine) render(src string, c *Call) string {
	node, err := e.parse(src)
	if err != nil {
		e.logger.Error("bad template",
			zap.String("template", src),
			zap.Error(err))
		return ""
	}
	return e.Process(node, c)
}
