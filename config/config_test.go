package config

import (
	"errors"
	"io/ioutil"
	"path/filepath"
	"testing"
	"time"

	"github.com/Comcast/chatter/settings"

	"github.com/google/go-cmp/cmp"
)

func TestDefault(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}
	if got := Table(c.Predicates).Get("topic"); got != "*" {
		t.Fatalf("topic %q", got)
	}
}

func TestParse(t *testing.T) {
	src := `
name: Ada
timeout: 500ms
maxDepth: 4
bot:
  name: Grace
  age: 42
substitutions:
  "u": "you"
  "r": "are"
`
	c, err := Parse([]byte(src))
	if err != nil {
		t.Fatal(err)
	}
	if c.Timeout != 500*time.Millisecond {
		t.Fatalf("timeout %v", c.Timeout)
	}
	if c.MaxDepth != 4 {
		t.Fatalf("maxDepth %d", c.MaxDepth)
	}
	if c.HistorySize != Default().HistorySize {
		t.Fatalf("historySize %d", c.HistorySize)
	}

	bot := c.BotSettings()
	if got := bot.Get("name"); got != "Grace" {
		t.Fatalf("name %q", got)
	}
	if got := bot.Get("AGE"); got != "42" {
		t.Fatalf("age %q", got)
	}

	want := []settings.Pair{{Key: "u", Value: "you"}, {Key: "r", Value: "are"}}
	if diff := cmp.Diff(want, Table(c.Substitutions).Pairs()); diff != "" {
		t.Fatal(diff)
	}
}

func TestBad(t *testing.T) {
	_, err := Parse([]byte("maxDepth: 0"))
	var bad *BadConfig
	if !errors.As(err, &bad) {
		t.Fatalf("expected BadConfig, got %v", err)
	}
	if bad.Field != "maxDepth" {
		t.Fatal(bad.Field)
	}

	if _, err = Parse([]byte("timeout: [")); err == nil {
		t.Fatal("expected a YAML error")
	}
}

func TestLoad(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "chatter.yaml")
	if err := ioutil.WriteFile(filename, []byte("version: \"2.1\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(filename)
	if err != nil {
		t.Fatal(err)
	}
	if got := c.BotSettings().Get("version"); got != "2.1" {
		t.Fatalf("version %q", got)
	}
	if _, err = Load(filename + ".missing"); err == nil {
		t.Fatal("expected an error")
	}
}
