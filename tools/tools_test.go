package tools

import (
	"bytes"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Comcast/chatter/loader"
	"github.com/Comcast/chatter/match"

	"github.com/google/go-cmp/cmp"
)

var cats = []*loader.Category{
	{Pattern: "HELLO", Template: "Hi there.", Doc: "A *greeting*."},
	{Pattern: "HI", Template: "<srai>hello</srai>"},
	{Pattern: "HOWDY", Template: "<srai>good day</srai>"},
	{Pattern: "MY NAME IS *", Template: `<set name="name"><star/></set><wave/>`},
	{Pattern: "YES", That: "DO YOU LIKE CATS", Template: "Me too."},
	{Pattern: "*", Topic: "cats", Template: "Cats!"},
	{Pattern: "HELLO", Template: "Hello again."},
	{Pattern: "BROKEN", Template: "<b>oops"},
}

func TestAnalyze(t *testing.T) {
	a, err := Analyze(cats, "Wave")
	if err != nil {
		t.Fatal(err)
	}

	if a.Categories != 8 || a.Paths != 7 {
		t.Fatalf("%d %d", a.Categories, a.Paths)
	}
	if diff := cmp.Diff([]string{"HELLO <THAT> * <TOPIC> * <EMOTION> *"}, a.Duplicates); diff != "" {
		t.Fatal(diff)
	}
	if a.Wildcards != 2 || a.Srais != 2 {
		t.Fatalf("%d %d", a.Wildcards, a.Srais)
	}
	if diff := cmp.Diff([]string{"good day"}, a.UnmatchedSrais); diff != "" {
		t.Fatal(diff)
	}
	if diff := cmp.Diff([]string{"CATS"}, a.Topics); diff != "" {
		t.Fatal(diff)
	}
	if len(a.UnknownTags) != 0 {
		t.Fatal(a.UnknownTags)
	}
	if len(a.BadTemplates) != 1 {
		t.Fatal(a.BadTemplates)
	}
	if a.CatchAll {
		t.Fatal("the only * is in a topic")
	}
	if a.Tags["srai"] != 2 || a.Tags["star"] != 1 {
		t.Fatal(a.Tags)
	}

	problems := a.Problems()
	if len(problems) != 4 {
		t.Fatal(problems)
	}

	// Without the custom tag.
	if a, err = Analyze(cats); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"wave"}, a.UnknownTags); diff != "" {
		t.Fatal(diff)
	}
}

func TestDot(t *testing.T) {
	g := match.NewGraphmaster()
	for _, c := range cats[:5] {
		if err := g.Add(c.Path(), c.Template, "test"); err != nil {
			t.Fatal(err)
		}
	}

	var buf bytes.Buffer
	if err := Dot(g, &buf, nil); err != nil {
		t.Fatal(err)
	}
	dot := buf.String()
	for _, want := range []string{"digraph G {", "n0 -> n1", "&lt;THAT&gt;", "&lt;srai&gt;hello&lt;/srai&gt;"} {
		if !strings.Contains(dot, want) {
			t.Fatalf("no %q in %s", want, dot)
		}
	}

	buf.Reset()
	if err := Dot(g, &buf, &DotOpts{MaxDepth: 1}); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "THAT") {
		t.Fatal(buf.String())
	}
}

func TestMermaid(t *testing.T) {
	var buf bytes.Buffer
	if err := Mermaid(cats, &buf); err != nil {
		t.Fatal(err)
	}
	got := buf.String()
	for _, want := range []string{"graph LR", `c1["HI"]`, "c1 --> c6", `m1["?"]`, `-. "good day" .->`} {
		if !strings.Contains(got, want) {
			t.Fatalf("no %q in %s", want, got)
		}
	}
}

func TestRenderCorpusPage(t *testing.T) {
	c := &loader.Corpus{
		Doc:        "Some **greetings**.",
		Categories: cats[:2],
	}
	var buf bytes.Buffer
	if err := RenderCorpusPage(c, "greetings", &buf, []string{"corpus.css"}); err != nil {
		t.Fatal(err)
	}
	got := buf.String()
	for _, want := range []string{"<strong>greetings</strong>", "<em>greeting</em>", "&lt;srai&gt;hello&lt;/srai&gt;", "corpus.css"} {
		if !strings.Contains(got, want) {
			t.Fatalf("no %q in %s", want, got)
		}
	}
}

func TestWriteYAML(t *testing.T) {
	c := &loader.Corpus{
		Doc:        "Converted.",
		Categories: cats[:5],
	}
	var buf bytes.Buffer
	if err := WriteYAML(c, &buf); err != nil {
		t.Fatal(err)
	}

	filename := filepath.Join(t.TempDir(), "c.yaml")
	if err := ioutil.WriteFile(filename, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
	d, err := loader.ReadCorpus(filename)
	if err != nil {
		t.Fatal(err)
	}
	if d.Doc != c.Doc || len(d.Categories) != 5 {
		t.Fatal(buf.String())
	}
	for i, x := range d.Categories {
		if x.Path() != c.Categories[i].Path() || x.Template != c.Categories[i].Template {
			t.Fatalf("%d: %#v", i, x)
		}
	}
}
