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

// Package normalize turns raw user input into match paths.
//
// Raw input is first stripped of any markup, then split into
// sentences.  Each sentence is then normalized: substitutions are
// applied ("can't" becomes "can not"), and everything except letters,
// digits, and spaces is removed.
//
// Case is preserved.  The matcher compares tokens case-insensitively,
// and wildcard captures keep the user's spelling.
package normalize

import (
	"io"
	"strings"
	"unicode"

	"github.com/Comcast/chatter/settings"

	"golang.org/x/net/html"
)

// DefaultSplitters end sentences when none are configured.
var DefaultSplitters = []string{".", "!", "?", ";"}

// Normalizer is the default normalizer.
type Normalizer struct {
	// Splitters end sentences.
	Splitters []string

	// Substitutions are applied to each sentence before
	// punctuation is removed.
	Substitutions *settings.Dictionary
}

// New makes a Normalizer.  A nil or empty splitters uses
// DefaultSplitters.
func New(splitters []string, substitutions *settings.Dictionary) *Normalizer {
	if len(splitters) == 0 {
		splitters = DefaultSplitters
	}
	if substitutions == nil {
		substitutions = settings.New()
	}
	return &Normalizer{
		Splitters:     splitters,
		Substitutions: substitutions,
	}
}

// StripMarkup returns the text content of a fragment that might
// contain HTML.  Entities are decoded.
func StripMarkup(raw string) string {
	if !strings.ContainsAny(raw, "<&") {
		return raw
	}
	var (
		acc strings.Builder
		z   = html.NewTokenizer(strings.NewReader(raw))
	)
	for {
		switch z.Next() {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				return acc.String()
			}
			// Give up on markup we can't read.
			return raw
		case html.TextToken:
			acc.Write(z.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			acc.WriteByte(' ')
		}
	}
}

// Sentences splits raw input into trimmed, non-empty sentences.
func (n *Normalizer) Sentences(raw string) []string {
	return Split(StripMarkup(raw), n.Splitters)
}

// Split splits text at any of the splitters.  Splitters are dropped.
// Empty sentences are dropped.
func Split(text string, splitters []string) []string {
	var (
		acc   = make([]string, 0, 2)
		start = 0
	)
	emit := func(end int) {
		if s := strings.TrimSpace(text[start:end]); s != "" {
			acc = append(acc, s)
		}
	}
	for i := 0; i < len(text); {
		matched := 0
		for _, sp := range splitters {
			if sp != "" && strings.HasPrefix(text[i:], sp) {
				matched = len(sp)
				break
			}
		}
		if matched == 0 {
			i++
			continue
		}
		emit(i)
		i += matched
		start = i
	}
	emit(len(text))
	return acc
}

// Normalize makes a path (segment) from a sentence.
func (n *Normalizer) Normalize(sentence string) string {
	return Clean(n.Substitutions.Substitute(sentence))
}

// Clean removes everything except letters, digits, and whitespace and
// collapses whitespace.
func Clean(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(s), " ")
}
