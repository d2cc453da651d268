/* Copyright 2018 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package tools has utilities for examining a corpus: analysis,
// Graphviz and Mermaid renderings, HTML documentation, and YAML
// conversion.
package tools

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/Comcast/chatter/core"
	"github.com/Comcast/chatter/loader"
	"github.com/Comcast/chatter/match"
	"github.com/Comcast/chatter/normalize"
	"github.com/Comcast/chatter/template"
)

// CorpusAnalysis summarizes a corpus and notes likely problems.
type CorpusAnalysis struct {
	Categories int `json:"categories"`

	// Paths is the number of distinct paths.
	Paths int `json:"paths"`

	// Duplicates are paths defined more than once.  The last
	// definition wins.
	Duplicates []string `json:"duplicates,omitempty"`

	// Wildcards counts categories with a wildcard in the pattern.
	Wildcards int `json:"wildcards"`

	Topics   []string `json:"topics,omitempty"`
	Emotions []string `json:"emotions,omitempty"`

	// Tags counts the uses of each tag.
	Tags map[string]int `json:"tags"`

	// UnknownTags are tags that are neither built in nor custom.
	// They render as their text.
	UnknownTags []string `json:"unknownTags,omitempty"`

	// BadTemplates are templates that don't parse.
	BadTemplates []string `json:"badTemplates,omitempty"`

	Srais int `json:"srais"`

	// UnmatchedSrais are literal srai inputs that no category
	// matches (with wildcard that, topic, and emotion).
	UnmatchedSrais []string `json:"unmatchedSrais,omitempty"`

	// CatchAll reports if a category matches any input.
	CatchAll bool `json:"catchAll"`
}

// index makes a Graphmaster whose templates are category indexes.
func index(cats []*loader.Category) *match.Graphmaster {
	g := match.NewGraphmaster()
	for i, c := range cats {
		g.Add(c.Path(), strconv.Itoa(i), c.Source)
	}
	return g
}

// lookup returns the index of the category that input matches or -1.
func lookup(g *match.Graphmaster, input string) int {
	input = normalize.Clean(input)
	if input == "" {
		return -1
	}
	q := match.NewQuery(core.Path(input, match.Star, match.Star, match.Star))
	i, err := strconv.Atoi(g.Evaluate(q.Path, q, nil))
	if err != nil {
		return -1
	}
	return i
}

// literal returns the text of a node that has no element children.
func literal(n *template.Node) (string, bool) {
	if len(n.Elements()) != 0 {
		return "", false
	}
	return n.InnerText(), true
}

func walk(n *template.Node, fn func(*template.Node)) {
	if n.IsText() {
		return
	}
	fn(n)
	for _, c := range n.Children {
		walk(c, fn)
	}
}

func sorted(m map[string]bool) []string {
	acc := make([]string, 0, len(m))
	for k := range m {
		acc = append(acc, k)
	}
	sort.Strings(acc)
	return acc
}

// Analyze examines the categories.  The customTags are tags that an
// Engine will have registered.
func Analyze(cats []*loader.Category, customTags ...string) (*CorpusAnalysis, error) {
	a := &CorpusAnalysis{
		Categories: len(cats),
		Tags:       make(map[string]int),
	}

	known := make(map[string]bool)
	for _, name := range core.Builtins() {
		known[name] = true
	}
	for _, name := range customTags {
		known[strings.ToLower(name)] = true
	}
	known[template.RootName] = true
	known["li"] = true

	var (
		g          = index(cats)
		paths      = make(map[string]int)
		topics     = make(map[string]bool)
		emotions   = make(map[string]bool)
		unknown    = make(map[string]bool)
		unmatched  = make(map[string]bool)
		duplicates = make(map[string]bool)
	)

	for _, c := range cats {
		path := c.Path()
		paths[path]++
		if 1 < paths[path] {
			duplicates[path] = true
		}
		if strings.ContainsAny(c.Pattern, match.Star+match.Underscore) {
			a.Wildcards++
		}
		if c.Topic != "" {
			topics[strings.ToUpper(c.Topic)] = true
		}
		if c.Emotion != "" {
			emotions[strings.ToUpper(c.Emotion)] = true
		}
		if strings.TrimSpace(c.Pattern) == match.Star || strings.TrimSpace(c.Pattern) == match.Underscore {
			if c.That == "" && c.Topic == "" && c.Emotion == "" {
				a.CatchAll = true
			}
		}

		root, err := template.Parse(c.Template)
		if err != nil {
			a.BadTemplates = append(a.BadTemplates, fmt.Sprintf("%s: %s: %s", c.Source, c.Pattern, err))
			continue
		}
		walk(root, func(n *template.Node) {
			if n.Name == template.RootName {
				return
			}
			a.Tags[n.Name]++
			if !known[n.Name] {
				unknown[n.Name] = true
			}
			if n.Name != "srai" {
				return
			}
			a.Srais++
			if s, is := literal(n); is && lookup(g, s) < 0 {
				unmatched[strings.TrimSpace(s)] = true
			}
		})
	}

	a.Paths = len(paths)
	a.Duplicates = sorted(duplicates)
	a.Topics = sorted(topics)
	a.Emotions = sorted(emotions)
	a.UnknownTags = sorted(unknown)
	a.UnmatchedSrais = sorted(unmatched)

	return a, nil
}

// Problems lists the findings that probably need attention.
func (a *CorpusAnalysis) Problems() []string {
	var acc []string
	for _, p := range a.Duplicates {
		acc = append(acc, "duplicate path: "+p)
	}
	for _, t := range a.UnknownTags {
		acc = append(acc, "unknown tag: "+t)
	}
	acc = append(acc, a.BadTemplates...)
	for _, s := range a.UnmatchedSrais {
		acc = append(acc, "unmatched srai: "+s)
	}
	if !a.CatchAll {
		acc = append(acc, "no catch-all category")
	}
	return acc
}

// srais returns the literal srai inputs in a template.
func srais(src string) []string {
	root, err := template.Parse(src)
	if err != nil {
		return nil
	}
	var acc []string
	walk(root, func(n *template.Node) {
		if n.Name != "srai" {
			return
		}
		if s, is := literal(n); is && strings.TrimSpace(s) != "" {
			acc = append(acc, strings.TrimSpace(s))
		}
	})
	return acc
}
