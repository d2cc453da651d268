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

// Package template provides the parsed form of a response template:
// a tree of named nodes with string attributes and ordered children.
//
// Nodes are treated as immutable.  Code that needs a changed tree
// builds new nodes (see WithChildren) rather than editing old ones,
// so one parsed template can be shared by many sessions.
package template

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"
)

// RootName is the name of the synthetic root that Parse returns.
const RootName = "template"

// Attr is a name/value attribute.
type Attr struct {
	Name  string
	Value string
}

// Node is an element or a text node.
//
// A text node has an empty Name.
type Node struct {
	Name     string
	Attrs    []Attr
	Children []*Node
	Text     string
}

// NewText makes a text node.
func NewText(s string) *Node {
	return &Node{Text: s}
}

// NewElement makes an element.
func NewElement(name string, attrs []Attr, children ...*Node) *Node {
	return &Node{
		Name:     name,
		Attrs:    attrs,
		Children: children,
	}
}

// IsText reports if the node is a text node.
func (n *Node) IsText() bool {
	return n.Name == ""
}

// Attr returns the value of the named attribute (case-insensitive)
// and whether it's present.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if strings.EqualFold(a.Name, name) {
			return a.Value, true
		}
	}
	return "", false
}

// AttrOr returns the named attribute or the given default.
func (n *Node) AttrOr(name, def string) string {
	if v, have := n.Attr(name); have {
		return v
	}
	return def
}

// Elements returns the element children, skipping text.
func (n *Node) Elements() []*Node {
	acc := make([]*Node, 0, len(n.Children))
	for _, c := range n.Children {
		if !c.IsText() {
			acc = append(acc, c)
		}
	}
	return acc
}

// HasChildren reports if the node has any children.
func (n *Node) HasChildren() bool {
	return 0 < len(n.Children)
}

// WithChildren returns a copy of the node (sharing attributes) with the
// given children.
func (n *Node) WithChildren(children []*Node) *Node {
	return &Node{
		Name:     n.Name,
		Attrs:    n.Attrs,
		Children: children,
		Text:     n.Text,
	}
}

// InnerText concatenates all descendant text.
func (n *Node) InnerText() string {
	if n.IsText() {
		return n.Text
	}
	var buf strings.Builder
	n.innerText(&buf)
	return buf.String()
}

func (n *Node) innerText(buf *strings.Builder) {
	for _, c := range n.Children {
		if c.IsText() {
			buf.WriteString(c.Text)
		} else {
			c.innerText(buf)
		}
	}
}

// InnerXML renders the node's children as markup.
func (n *Node) InnerXML() string {
	if n.IsText() {
		return escape(n.Text)
	}
	var buf bytes.Buffer
	for _, c := range n.Children {
		c.write(&buf)
	}
	return buf.String()
}

// OuterXML renders the node (including itself) as markup.
func (n *Node) OuterXML() string {
	var buf bytes.Buffer
	n.write(&buf)
	return buf.String()
}

// String is OuterXML.
func (n *Node) String() string {
	return n.OuterXML()
}

func (n *Node) write(buf *bytes.Buffer) {
	if n.IsText() {
		buf.WriteString(escape(n.Text))
		return
	}
	buf.WriteByte('<')
	buf.WriteString(n.Name)
	for _, a := range n.Attrs {
		buf.WriteByte(' ')
		buf.WriteString(a.Name)
		buf.WriteString(`="`)
		buf.WriteString(escape(a.Value))
		buf.WriteByte('"')
	}
	if len(n.Children) == 0 {
		buf.WriteString("/>")
		return
	}
	buf.WriteByte('>')
	for _, c := range n.Children {
		c.write(buf)
	}
	buf.WriteString("</")
	buf.WriteString(n.Name)
	buf.WriteByte('>')
}

// escaper is narrower than xml.EscapeText, which also escapes
// whitespace.
var escaper = strings.NewReplacer(`&`, "&amp;", `<`, "&lt;", `>`, "&gt;", `"`, "&quot;")

func escape(s string) string {
	return escaper.Replace(s)
}

// Parse parses a markup fragment and returns a synthetic root named
// "template" whose children are the fragment's top-level nodes.
//
// Element names are lower-cased.  A fragment that is itself wrapped in
// a single <template> element is unwrapped.
func Parse(fragment string) (*Node, error) {
	d := xml.NewDecoder(strings.NewReader("<" + RootName + ">" + fragment + "</" + RootName + ">"))
	d.Strict = true
	d.Entity = xml.HTMLEntity

	var (
		root  *Node
		stack []*Node
	)

	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{Name: strings.ToLower(t.Name.Local)}
			for _, a := range t.Attr {
				n.Attrs = append(n.Attrs, Attr{Name: a.Name.Local, Value: a.Value})
			}
			if root == nil {
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			}
			stack = append(stack, n)
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, errors.New("unbalanced template markup")
			}
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) == 0 {
				continue
			}
			parent := stack[len(stack)-1]
			s := string(t)
			if k := len(parent.Children); 0 < k && parent.Children[k-1].IsText() {
				parent.Children[k-1] = NewText(parent.Children[k-1].Text + s)
			} else {
				parent.Children = append(parent.Children, NewText(s))
			}
		}
	}

	if root == nil {
		return nil, errors.New("empty template markup")
	}

	if len(root.Children) == 1 && root.Children[0].Name == RootName {
		root = root.Children[0]
	}

	return root, nil
}

// MustParse is Parse that panics on error.  For tests and literals.
func MustParse(fragment string) *Node {
	n, err := Parse(fragment)
	if err != nil {
		panic(err)
	}
	return n
}
