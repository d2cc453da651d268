// Package extensions has custom tags that aren't built in.
//
//	<cronnext>0 9 * * MON</cronnext>  the next time for a cron expression
//	<gensym/>                        a random identifier
package extensions

import (
	"strings"
	"time"

	"github.com/Comcast/chatter/core"
	"github.com/Comcast/chatter/template"

	"github.com/google/uuid"
	"github.com/gorhill/cronexpr"
	"go.uber.org/zap"
)

// Extensions registers its tags with an Engine.
type Extensions struct {
	// Now is the clock for cronnext.
	Now func() time.Time

	// Layout is the default time layout for cronnext.  A "format"
	// attribute overrides it.
	Layout string
}

// New makes Extensions that use the real clock and RFC1123.
func New() *Extensions {
	return &Extensions{
		Now:    time.Now,
		Layout: time.RFC1123,
	}
}

// Register adds the tags to the Engine.
func (x *Extensions) Register(e *core.Engine) error {
	tags := map[string]core.TagSpec{
		"cronnext": {
			Order: core.EagerChildren,
			New: func(c *core.Call) core.Handler {
				return core.HandlerFunc(func(n *template.Node) string {
					return x.cronNext(c, n)
				})
			},
		},
		"gensym": {
			Order: core.EagerChildren,
			New: func(c *core.Call) core.Handler {
				return core.HandlerFunc(func(n *template.Node) string {
					return uuid.New().String()
				})
			},
		},
	}
	for name, spec := range tags {
		if err := e.RegisterTag(name, spec); err != nil {
			return err
		}
	}
	return nil
}

func (x *Extensions) cronNext(c *core.Call, n *template.Node) string {
	src := strings.TrimSpace(n.InnerText())
	expr, err := cronexpr.Parse(src)
	if err != nil {
		c.Logger().Warn("bad cron expression",
			zap.String("expr", src),
			zap.Error(err))
		return ""
	}
	next := expr.Next(x.Now())
	if next.IsZero() {
		return ""
	}
	return next.Format(n.AttrOr("format", x.Layout))
}
