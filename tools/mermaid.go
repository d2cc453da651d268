package tools

import (
	"fmt"
	"io"
	"strings"

	"github.com/Comcast/chatter/loader"
)

// Mermaid makes a Mermaid (https://mermaidjs.github.io/) flowchart
// of the srai redirections between categories.
//
// Each category that has a literal srai, or that is the target of
// one, is a node labeled with its pattern.  A srai that no category
// matches points to a node labeled "?".
func Mermaid(cats []*loader.Category, w io.Writer) error {
	g := index(cats)

	var (
		lines   = []string{"graph LR"}
		defined = make(map[int]bool)
	)

	node := func(i int) string {
		id := fmt.Sprintf("c%d", i)
		if !defined[i] {
			defined[i] = true
			label := strings.Replace(cats[i].Pattern, `"`, "#quot;", -1)
			if cats[i].Topic != "" {
				label += " / " + cats[i].Topic
			}
			lines = append(lines, fmt.Sprintf(`  %s["%s"]`, id, label))
		}
		return id
	}

	missing := 0
	for i, c := range cats {
		for _, s := range srais(c.Template) {
			from := node(i)
			if j := lookup(g, s); 0 <= j {
				lines = append(lines, fmt.Sprintf("  %s --> %s", from, node(j)))
				continue
			}
			missing++
			to := fmt.Sprintf("m%d", missing)
			lines = append(lines, fmt.Sprintf(`  %s["?"]`, to))
			lines = append(lines, fmt.Sprintf(`  %s -. "%s" .-> %s`, from, strings.Replace(s, `"`, "#quot;", -1), to))
		}
	}

	_, err := io.WriteString(w, strings.Join(lines, "\n")+"\n")
	return err
}
