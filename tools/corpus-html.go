package tools

import (
	"fmt"
	"html"
	"io"

	"github.com/Comcast/chatter/loader"

	md "github.com/russross/blackfriday/v2"
)

// RenderCorpusHTML writes an HTML table of the corpus's categories.
// Docs are Markdown.
func RenderCorpusHTML(c *loader.Corpus, out io.Writer) error {
	f := func(format string, args ...interface{}) {
		fmt.Fprintf(out, format+"\n", args...)
	}

	if c.Doc != "" {
		f(`<div class="corpusDoc doc">%s</div>`, md.Run([]byte(c.Doc)))
	}

	f(`<div class="categories"><table>`)
	for i, cat := range c.Categories {
		f(`<tr class="category" id="c%d"><td><span class="pattern">%s</span></td><td>`, i, html.EscapeString(cat.Pattern))
		if cat.Doc != "" {
			f(`<div class="categoryDoc doc">%s</div>`, md.Run([]byte(cat.Doc)))
		}
		f(`<table>`)
		for _, x := range []struct{ name, value string }{
			{"that", cat.That},
			{"topic", cat.Topic},
			{"emotion", cat.Emotion},
		} {
			if x.value != "" {
				f(`<tr><td>%s</td><td><code>%s</code></td></tr>`, x.name, html.EscapeString(x.value))
			}
		}
		f(`<tr><td>template</td><td><div class="code"><pre>%s</pre></div></td></tr>`, html.EscapeString(cat.Template))
		f(`</table>`)
		f(`</td></tr>`)
	}
	f(`</table></div>`)

	return nil
}

// RenderCorpusPage writes a complete HTML page for the corpus.
func RenderCorpusPage(c *loader.Corpus, title string, out io.Writer, cssFiles []string) error {
	if cssFiles == nil {
		cssFiles = []string{"/static/corpus.css"}
	}

	fmt.Fprintf(out, `<!DOCTYPE html>
<html>
  <head>
  <meta charset="utf-8">
  <title>%s</title>
`, html.EscapeString(title))

	for _, cssFile := range cssFiles {
		fmt.Fprintf(out, "  <link href=\"%s\" rel=\"stylesheet\">\n", cssFile)
	}

	fmt.Fprintf(out, `  </head>
  <body>
    <h1>%s</h1>
`, html.EscapeString(title))

	if err := RenderCorpusHTML(c, out); err != nil {
		return err
	}

	_, err := fmt.Fprintf(out, `
  </body>
</html>
`)
	return err
}

// ReadAndRenderCorpusPage reads a corpus file and writes its page.
func ReadAndRenderCorpusPage(filename string, cssFiles []string, out io.Writer) error {
	c, err := loader.ReadCorpus(filename)
	if err != nil {
		return err
	}
	return RenderCorpusPage(c, filename, out, cssFiles)
}
