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

// Package match implements the core pattern matcher: a wildcard-aware
// prefix tree over normalized word sequences.
//
// Each stored category is a path of space-separated tokens.  A path
// can have up to four segments separated by the literal tokens
// <THAT>, <TOPIC>, and <EMOTION>.  The tokens "_" and "*" are
// wildcards that match one or more tokens.  At any node, "_" is tried
// first, then the literal token, then "*".
package match

import (
	"errors"
	"sort"
	"strings"
)

const (
	// Underscore is the high-priority wildcard.
	Underscore = "_"

	// Star is the low-priority wildcard.
	Star = "*"

	// ThatToken separates the input segment from the that
	// (previous output) segment.
	ThatToken = "<THAT>"

	// TopicToken introduces the topic segment.
	TopicToken = "<TOPIC>"

	// EmotionToken introduces the emotion segment.
	EmotionToken = "<EMOTION>"
)

// EmptyTemplate occurs when a category without a template is
// inserted.
var EmptyTemplate = errors.New("empty template")

// Expirer reports if the time allowed for a search has passed.
//
// An Expirer can have side effects.  The engine's requests record
// that they timed out when Expired first returns true.
type Expirer interface {
	Expired() bool
}

// Never is an Expirer that never expires.
var Never Expirer = never{}

type never struct{}

func (never) Expired() bool { return false }

// Node is a node in the matcher trie.
//
// A Node exclusively owns its children.  A Node can have a template
// and children at the same time: its path is then both a complete
// category and a prefix of longer ones.
type Node struct {
	children map[string]*Node

	// template is the response template for the path ending here
	// (if any).
	template string

	// source identifies where the template came from (usually a
	// filename).
	source string

	// word is the token that labels this node.
	word string
}

// NewNode makes a root node.
func NewNode() *Node {
	return &Node{}
}

// Word returns the token that labels this node.
func (n *Node) Word() string {
	return n.word
}

// Template returns the node's template (if any).
func (n *Node) Template() string {
	return n.template
}

// Source returns the source of the node's template.
func (n *Node) Source() string {
	return n.source
}

// Len returns the number of children.
func (n *Node) Len() int {
	return len(n.children)
}

// Child returns the child for the given token.
func (n *Node) Child(token string) (*Node, bool) {
	c, have := n.children[token]
	return c, have
}

// Tokens returns the children's tokens sorted with "_" first and "*"
// last.
func (n *Node) Tokens() []string {
	acc := make([]string, 0, len(n.children))
	for k := range n.children {
		acc = append(acc, k)
	}
	rank := func(s string) int {
		switch s {
		case Underscore:
			return 0
		case Star:
			return 2
		}
		return 1
	}
	sort.Slice(acc, func(i, j int) bool {
		ri, rj := rank(acc[i]), rank(acc[j])
		if ri != rj {
			return ri < rj
		}
		return acc[i] < acc[j]
	})
	return acc
}

// Normalize makes the key used for a token.
func Normalize(token string) string {
	return strings.ToUpper(token)
}

// firstToken splits a trimmed path into its first token and the
// remainder.
func firstToken(path string) (string, string) {
	i := strings.IndexAny(path, " \t\r\n")
	if i < 0 {
		return path, ""
	}
	return path[:i], path[i:]
}

// Insert adds a category with the given path below this node.
//
// An existing template for exactly the same path is replaced.
func (n *Node) Insert(path, template, source string) error {
	if len(template) == 0 {
		return EmptyTemplate
	}

	path = strings.TrimSpace(path)
	if len(path) == 0 {
		n.template = template
		n.source = source
		return nil
	}

	first, rest := firstToken(path)
	key := Normalize(first)

	child, have := n.children[key]
	if !have {
		if n.children == nil {
			n.children = make(map[string]*Node, 4)
		}
		child = &Node{
			word: key,
		}
		n.children[key] = child
	}

	return child.Insert(rest, template, source)
}

// Evaluate searches below this node for the template that best
// matches the given path.
//
// Returns "" if nothing matched or if the deadline expired.
//
// Wildcard captures are added to q in the order that recursion
// unwinds (innermost wildcard first).  The state says which segment
// of the path is being traversed.  The wildcard buffer collects the
// tokens consumed by this node when this node is itself a wildcard.
func (n *Node) Evaluate(path string, q *Query, deadline Expirer, state State, wildcard *[]string) string {
	if deadline.Expired() {
		return ""
	}

	path = strings.TrimSpace(path)

	if len(n.children) == 0 {
		if 0 < len(path) {
			storeWildcard(path, wildcard)
		}
		return n.template
	}

	if len(path) == 0 {
		return n.template
	}

	raw, rest := firstToken(path)
	first := Normalize(raw)

	// Only the Input state resets a wildcard branch's buffer after
	// recording it.  The literal branch always resets.  See DESIGN.md.

	if child, have := n.children[Underscore]; have {
		buf := make([]string, 0, 4)
		storeWildcard(raw, &buf)
		if result := child.Evaluate(rest, q, deadline, state, &buf); 0 < len(result) {
			if 0 < len(buf) {
				q.add(state, strings.Join(buf, " "))
				if state == Input {
					buf = buf[:0]
				}
			}
			return result
		}
	}

	if child, have := n.children[first]; have {
		next := state
		switch first {
		case ThatToken:
			next = That
		case TopicToken:
			next = Topic
		case EmotionToken:
			next = Emotion
		}
		buf := make([]string, 0, 4)
		if result := child.Evaluate(rest, q, deadline, next, &buf); 0 < len(result) {
			if 0 < len(buf) {
				q.add(state, strings.Join(buf, " "))
				buf = buf[:0]
			}
			return result
		}
	}

	if child, have := n.children[Star]; have {
		buf := make([]string, 0, 4)
		storeWildcard(raw, &buf)
		if result := child.Evaluate(rest, q, deadline, state, &buf); 0 < len(result) {
			if 0 < len(buf) {
				q.add(state, strings.Join(buf, " "))
				if state == Input {
					buf = buf[:0]
				}
			}
			return result
		}
	}

	if n.word == Underscore || n.word == Star {
		storeWildcard(raw, wildcard)
		return n.Evaluate(rest, q, deadline, state, wildcard)
	}

	return ""
}

func storeWildcard(s string, wildcard *[]string) {
	if wildcard == nil {
		return
	}
	*wildcard = append(*wildcard, s)
}

// Walk visits every node in depth-first order.  The path given to
// the function is the sequence of tokens from the root.
//
// Walk stops when the function returns false for a node; that node's
// children are skipped but siblings are still visited.
func (n *Node) Walk(fn func(path []string, n *Node) bool) {
	n.walk(nil, fn)
}

func (n *Node) walk(path []string, fn func([]string, *Node) bool) {
	if !fn(path, n) {
		return
	}
	for _, token := range n.Tokens() {
		child := n.children[token]
		next := make([]string, len(path), len(path)+1)
		copy(next, path)
		child.walk(append(next, token), fn)
	}
}
