/* Copyright 2019 Comcast Cable Communications Management, LLC
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

// Package loader reads category files.
//
// Two formats are supported.  AIML files (".aiml" or ".xml") hold
// <category> elements, optionally grouped in <topic name="...">
// elements.  YAML files (".yaml" or ".yml") hold a list of
// categories:
//
//	categories:
//	  - pattern: MY NAME IS *
//	    that: "*"
//	    topic: "*"
//	    emotion: "*"
//	    template: Nice to meet you <set name="name"><star/></set>.
//
// Only pattern and template are required.
package loader

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Comcast/chatter/match"
	"github.com/Comcast/chatter/util"

	"github.com/jsccast/yaml"
	"go.uber.org/zap"
)

// Category is a parsed category before it becomes a path.
type Category struct {
	Pattern  string `yaml:"pattern" json:"pattern"`
	That     string `yaml:"that,omitempty" json:"that,omitempty"`
	Topic    string `yaml:"topic,omitempty" json:"topic,omitempty"`
	Emotion  string `yaml:"emotion,omitempty" json:"emotion,omitempty"`
	Template string `yaml:"template" json:"template"`

	// Doc is optional documentation (Markdown).
	Doc string `yaml:"doc,omitempty" json:"doc,omitempty"`

	Source string `yaml:"-" json:"source,omitempty"`
}

func orStar(s string) string {
	return strings.ToUpper(match.OrStar(s))
}

// Path returns the complete match path for the category.
func (c *Category) Path() string {
	return strings.Join([]string{
		orStar(c.Pattern),
		match.ThatToken, orStar(c.That),
		match.TopicToken, orStar(c.Topic),
		match.EmotionToken, orStar(c.Emotion),
	}, " ")
}

// Corpus is the YAML file format.
type Corpus struct {
	Doc        string      `yaml:"doc,omitempty" json:"doc,omitempty"`
	Categories []*Category `yaml:"categories" json:"categories"`
}

type aimlFile struct {
	XMLName    xml.Name        `xml:"aiml"`
	Categories []*aimlCategory `xml:"category"`
	Topics     []*aimlTopic    `xml:"topic"`
}

type aimlTopic struct {
	Name       string          `xml:"name,attr"`
	Categories []*aimlCategory `xml:"category"`
}

type aimlCategory struct {
	Pattern  string   `xml:"pattern"`
	That     string   `xml:"that"`
	Emotion  string   `xml:"emotion"`
	Template innerXML `xml:"template"`
}

type innerXML struct {
	XML string `xml:",innerxml"`
}

// ParseAIML reads categories from AIML.
func ParseAIML(r io.Reader, source string) ([]*Category, error) {
	var f aimlFile
	d := xml.NewDecoder(r)
	d.Strict = true
	d.Entity = xml.HTMLEntity
	if err := d.Decode(&f); err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}

	acc := make([]*Category, 0, len(f.Categories))
	add := func(c *aimlCategory, topic string) {
		acc = append(acc, &Category{
			Pattern:  c.Pattern,
			That:     c.That,
			Topic:    topic,
			Emotion:  c.Emotion,
			Template: strings.TrimSpace(c.Template.XML),
			Source:   source,
		})
	}
	for _, c := range f.Categories {
		add(c, "")
	}
	for _, t := range f.Topics {
		for _, c := range t.Categories {
			add(c, t.Name)
		}
	}
	return acc, nil
}

// ParseYAML reads categories from YAML.
func ParseYAML(bs []byte, source string) ([]*Category, error) {
	c, err := parseCorpus(bs, source)
	if err != nil {
		return nil, err
	}
	return c.Categories, nil
}

func parseCorpus(bs []byte, source string) (*Corpus, error) {
	var c Corpus
	if err := yaml.Unmarshal(bs, &c); err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	for _, x := range c.Categories {
		x.Source = source
		x.Template = strings.TrimSpace(x.Template)
	}
	return &c, nil
}

// ParseFile reads categories from the named file based on its
// extension.
func ParseFile(filename string) ([]*Category, error) {
	c, err := ReadCorpus(filename)
	if err != nil {
		return nil, err
	}
	return c.Categories, nil
}

// ReadCorpus reads the named file as a Corpus.  An AIML corpus has no
// Doc.
func ReadCorpus(filename string) (*Corpus, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".aiml", ".xml":
		f, err := os.Open(filename)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		cats, err := ParseAIML(f, filename)
		if err != nil {
			return nil, err
		}
		return &Corpus{Categories: cats}, nil
	case ".yaml", ".yml":
		bs, err := ioutil.ReadFile(filename)
		if err != nil {
			return nil, err
		}
		return parseCorpus(bs, filename)
	default:
		return nil, &UnknownFormat{filename}
	}
}

// UnknownFormat occurs when a filename's extension isn't recognized.
type UnknownFormat struct {
	Filename string
}

func (e *UnknownFormat) Error() string {
	return "unknown category file format: " + e.Filename
}

// Loader adds category files to a corpus.
type Loader struct {
	logger *zap.Logger
}

// New makes a Loader.  The logger can be nil.
func New(logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		logger: logger.With(util.Origin("loader")),
	}
}

// Files expands a filename into the category files it names.  A
// directory yields its category files (recursively) in lexical
// order.
func Files(filename string) ([]string, error) {
	info, err := os.Stat(filename)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{filename}, nil
	}
	var acc []string
	err = filepath.Walk(filename, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".aiml", ".xml", ".yaml", ".yml":
			acc = append(acc, path)
		}
		return nil
	})
	sort.Strings(acc)
	return acc, err
}

// Load adds the categories in the named file (or directory) to the
// given Adder and returns the number added.
//
// A category that the Adder rejects is logged and skipped.
func (l *Loader) Load(ctx context.Context, filename string, into match.Adder) (int, error) {
	filenames, err := Files(filename)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, fn := range filenames {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		cats, err := ParseFile(fn)
		if err != nil {
			return n, err
		}
		for _, c := range cats {
			if err := into.Add(c.Path(), c.Template, c.Source); err != nil {
				l.logger.Warn("skipping category",
					zap.String("source", c.Source),
					zap.String("pattern", c.Pattern),
					zap.Error(err))
				continue
			}
			n++
		}
		l.logger.Debug("loaded", zap.String("filename", fn), zap.Int("categories", len(cats)))
	}
	return n, nil
}

// LoadAll calls Load for each filename.
func (l *Loader) LoadAll(ctx context.Context, filenames []string, into match.Adder) (int, error) {
	total := 0
	for _, fn := range filenames {
		n, err := l.Load(ctx, fn, into)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
