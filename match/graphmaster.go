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

package match

import (
	"strings"
	"sync"
)

// Graphmaster owns the category corpus.
//
// A Graphmaster serializes insertion against evaluation, so a corpus
// can learn new categories (say via a "learn" tag) while other
// sessions are being served.  Node itself does no locking.
type Graphmaster struct {
	mu   sync.RWMutex
	root *Node
	size int
}

// NewGraphmaster makes an empty Graphmaster.
func NewGraphmaster() *Graphmaster {
	return &Graphmaster{
		root: NewNode(),
	}
}

// Add inserts a category.
//
// Replacing the template for an existing path doesn't change Size.
func (g *Graphmaster) Add(path, template, source string) error {
	if len(template) == 0 {
		return EmptyTemplate
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	existed := g.has(path)
	if err := g.root.Insert(path, template, source); err != nil {
		return err
	}
	if !existed {
		g.size++
	}
	return nil
}

// has reports if a template is already stored for exactly this path.
func (g *Graphmaster) has(path string) bool {
	n := g.root
	for _, token := range strings.Fields(path) {
		c, have := n.children[Normalize(token)]
		if !have {
			return false
		}
		n = c
	}
	return n.template != ""
}

// Evaluate searches for the given path, records the template and
// captures in q, and returns the template.
func (g *Graphmaster) Evaluate(path string, q *Query, deadline Expirer) string {
	if deadline == nil {
		deadline = Never
	}
	g.mu.RLock()
	template := g.root.Evaluate(path, q, deadline, Input, nil)
	g.mu.RUnlock()
	q.Template = template
	return template
}

// Size returns the number of categories.
func (g *Graphmaster) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.size
}

// Walk calls Node.Walk on the root while holding a read lock.
func (g *Graphmaster) Walk(fn func(path []string, n *Node) bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	g.root.Walk(fn)
}

// Root returns the root node.
//
// The caller must not use the root while categories are being added.
func (g *Graphmaster) Root() *Node {
	return g.root
}

// Adder can receive categories.  A Graphmaster is an Adder.
type Adder interface {
	Add(path, template, source string) error
}
