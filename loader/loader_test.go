package loader

import (
	"context"
	"errors"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Comcast/chatter/match"
	"github.com/Comcast/chatter/util/testutil"

	"go.uber.org/zap"
)

var aimlSrc = `<?xml version="1.0" encoding="UTF-8"?>
<aiml version="1.0">
  <category>
    <pattern>HELLO</pattern>
    <template>Hi <b>there</b>.</template>
  </category>
  <category>
    <pattern>YES</pattern>
    <that>DO YOU LIKE CATS</that>
    <template>Me too.</template>
  </category>
  <topic name="cats">
    <category>
      <pattern>*</pattern>
      <template>Tell me more about cats.</template>
    </category>
  </topic>
  <category>
    <pattern>EMPTY</pattern>
    <template></template>
  </category>
</aiml>
`

var yamlSrc = `
categories:
  - pattern: my name is *
    template: |
      Nice to meet you <set name="name"><star/></set>.
  - pattern: HELP
    emotion: angry
    template: Calm down.
`

func write(t *testing.T, dir, name, src string) string {
	filename := filepath.Join(dir, name)
	if err := ioutil.WriteFile(filename, []byte(src), 0644); err != nil {
		t.Fatal(err)
	}
	return filename
}

func TestPath(t *testing.T) {
	c := &Category{Pattern: "hello  there", Topic: "cats"}
	want := "HELLO THERE <THAT> * <TOPIC> CATS <EMOTION> *"
	if got := c.Path(); got != want {
		t.Fatalf("got %q", got)
	}
}

func TestParseAIML(t *testing.T) {
	cats, err := ParseAIML(strings.NewReader(aimlSrc), "test.aiml")
	if err != nil {
		t.Fatal(err)
	}
	if len(cats) != 4 {
		t.Fatalf("got %d categories", len(cats))
	}
	if got := cats[0].Template; got != "Hi <b>there</b>." {
		t.Fatalf("template %q", got)
	}
	if got := cats[1].Path(); got != "YES <THAT> DO YOU LIKE CATS <TOPIC> * <EMOTION> *" {
		t.Fatalf("path %q", got)
	}
	if got := cats[3].Topic; got != "cats" {
		t.Fatalf("topic %q", got)
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "a.aiml", aimlSrc)
	write(t, dir, "b.yaml", yamlSrc)
	write(t, dir, "README.md", "ignored")

	logger, logs := testutil.ObservedLogger()
	g := match.NewGraphmaster()
	n, err := New(logger).Load(context.Background(), dir, g)
	if err != nil {
		t.Fatal(err)
	}
	// EMPTY has no template.
	if n != 5 || g.Size() != 5 {
		t.Fatalf("loaded %d, size %d", n, g.Size())
	}
	if c := testutil.CountLogged(logs, zap.WarnLevel, "skipping"); c != 1 {
		t.Fatalf("warnings %d", c)
	}

	q := match.NewQuery("MY NAME IS ADA <THAT> * <TOPIC> * <EMOTION> NEUTRAL")
	got := g.Evaluate(q.Path, q, nil)
	if !strings.HasPrefix(got, "Nice to meet you") {
		t.Fatalf("got %q", got)
	}
	if q.InputStar[0] != "ADA" {
		t.Fatal(q.InputStar)
	}

	q = match.NewQuery("WHATEVER <THAT> * <TOPIC> CATS <EMOTION> NEUTRAL")
	if got = g.Evaluate(q.Path, q, nil); got != "Tell me more about cats." {
		t.Fatalf("got %q", got)
	}
}

func TestUnknownFormat(t *testing.T) {
	filename := write(t, t.TempDir(), "x.txt", "")
	_, err := New(nil).Load(context.Background(), filename, match.NewGraphmaster())
	var unknown *UnknownFormat
	if !errors.As(err, &unknown) {
		t.Fatalf("got %v", err)
	}
}

func TestCanceled(t *testing.T) {
	filename := write(t, t.TempDir(), "a.aiml", aimlSrc)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(nil).Load(ctx, filename, match.NewGraphmaster()); err != context.Canceled {
		t.Fatalf("got %v", err)
	}
}

func TestReadCorpus(t *testing.T) {
	dir := t.TempDir()
	filename := write(t, dir, "c.yml", "doc: Greetings *only*.\n"+yamlSrc)

	c, err := ReadCorpus(filename)
	if err != nil {
		t.Fatal(err)
	}
	if c.Doc != "Greetings *only*." || len(c.Categories) != 2 {
		t.Fatal(testutil.JS(c))
	}
	if c.Categories[0].Source != filename {
		t.Fatal(c.Categories[0].Source)
	}

	if c, err = ReadCorpus(write(t, dir, "a.aiml", aimlSrc)); err != nil {
		t.Fatal(err)
	}
	if c.Doc != "" || len(c.Categories) != 4 {
		t.Fatal(testutil.JS(c))
	}
}
