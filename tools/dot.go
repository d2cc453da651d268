package tools

// dot -Tpng g.dot > g.png

import (
	"fmt"
	"io"
	"strings"

	"github.com/Comcast/chatter/match"
)

// DotOpts controls Dot.
type DotOpts struct {
	// MaxDepth limits how far down the trie is drawn.  Zero means
	// no limit.
	MaxDepth int

	// TemplateWidth is how much of each template is shown.
	TemplateWidth int
}

func dotEscape(s string) string {
	s = strings.Replace(s, "&", "&amp;", -1)
	s = strings.Replace(s, "<", "&lt;", -1)
	s = strings.Replace(s, ">", "&gt;", -1)
	s = strings.Replace(s, `"`, "&quot;", -1)
	return s
}

// Dot makes a Graphviz dot file for the trie.  A really ugly dot
// file.
//
// Wildcard nodes are colored.  A node that ends a category shows (the
// start of) its template.
func Dot(g *match.Graphmaster, w io.Writer, opts *DotOpts) error {
	if opts == nil {
		opts = &DotOpts{
			TemplateWidth: 40,
		}
	}

	fmt.Fprintf(w, "digraph G {\n")
	fmt.Fprintf(w, `  graph [ordering=out,rankdir=LR,nodesep=0.3,ranksep=0.6]
  node [shape="record" style="rounded,filled"]
`)

	ids := make(map[*match.Node]string)
	id := func(n *match.Node) string {
		if s, have := ids[n]; have {
			return s
		}
		s := fmt.Sprintf("n%d", len(ids))
		ids[n] = s
		return s
	}

	parents := make([]*match.Node, 0, 16)

	var err error
	g.Walk(func(path []string, n *match.Node) bool {
		if err != nil {
			return false
		}
		depth := len(path)
		if 0 < opts.MaxDepth && opts.MaxDepth < depth {
			return false
		}
		parents = append(parents[:depth], n)

		label := dotEscape(n.Word())
		if depth == 0 {
			label = "root"
		}
		fillcolor := "#99ddc8"
		switch n.Word() {
		case match.Underscore, match.Star:
			fillcolor = "#f98b8b"
		case match.ThatToken, match.TopicToken, match.EmotionToken:
			fillcolor = "#2d93ad"
		}
		style := "rounded,filled"
		if t := n.Template(); t != "" {
			if 0 < opts.TemplateWidth && opts.TemplateWidth < len(t) {
				t = t[:opts.TemplateWidth] + "..."
			}
			label += `<BR/><FONT POINT-SIZE="8">` + dotEscape(t) + `</FONT>`
			style += ",bold"
		}
		if _, err = fmt.Fprintf(w, "  %s [style=\"%s\", fillcolor=\"%s\", label=<%s>]\n",
			id(n), style, fillcolor, label); err != nil {
			return false
		}
		if 0 < depth {
			_, err = fmt.Fprintf(w, "  %s -> %s\n", id(parents[depth-1]), id(n))
		}
		return true
	})
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "}\n")
	return err
}
