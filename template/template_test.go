package template

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParse(t *testing.T) {
	n, err := Parse(`Hi <get name="Name"/>, <B>see</B> you.`)
	if err != nil {
		t.Fatal(err)
	}
	if n.Name != RootName {
		t.Fatalf("root %q", n.Name)
	}
	if got := len(n.Children); got != 5 {
		t.Fatalf("children %d: %s", got, n)
	}
	get := n.Children[1]
	if get.Name != "get" {
		t.Fatalf("name %q", get.Name)
	}
	if v, have := get.Attr("NAME"); !have || v != "Name" {
		t.Fatalf("attr %q %v", v, have)
	}
	if n.Children[3].Name != "b" {
		t.Fatalf("expected lower-cased element name, got %q", n.Children[3].Name)
	}
	if got, want := n.InnerText(), "Hi , see you."; got != want {
		t.Fatalf("InnerText %q", got)
	}
	if got, want := n.InnerXML(), `Hi <get name="Name"/>, <b>see</b> you.`; got != want {
		t.Fatalf("InnerXML %q", got)
	}
}

func TestParseUnwrap(t *testing.T) {
	n := MustParse(`<template>x<star/></template>`)
	if got, want := n.InnerXML(), "x<star/>"; got != want {
		t.Fatalf("got %q", got)
	}
}

func TestParseBad(t *testing.T) {
	for _, s := range []string{`<a>`, `</a>`, `<a></b>`} {
		if _, err := Parse(s); err == nil {
			t.Fatalf("%q should not parse", s)
		}
	}
}

func TestEscape(t *testing.T) {
	n := MustParse(`a &lt; b &amp; c`)
	if got, want := n.InnerText(), "a < b & c"; got != want {
		t.Fatalf("InnerText %q", got)
	}
	if got, want := n.InnerXML(), "a &lt; b &amp; c"; got != want {
		t.Fatalf("InnerXML %q", got)
	}
}

func TestWithChildren(t *testing.T) {
	n := MustParse(`<think><set name="x">1</set></think>`)
	think := n.Children[0]
	replaced := think.WithChildren([]*Node{NewText("done")})
	if got := think.InnerXML(); got != `<set name="x">1</set>` {
		t.Fatalf("original changed: %q", got)
	}
	if got := replaced.OuterXML(); got != `<think>done</think>` {
		t.Fatalf("got %q", got)
	}
}

func TestElements(t *testing.T) {
	n := MustParse(`<random> <li>a</li> <li>b</li> </random>`)
	var names []string
	for _, e := range n.Children[0].Elements() {
		names = append(names, e.InnerText())
	}
	if diff := cmp.Diff([]string{"a", "b"}, names); diff != "" {
		t.Fatal(diff)
	}
}
