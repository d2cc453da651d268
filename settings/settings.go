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

// Package settings provides an ordered key-value store with
// case-insensitive keys.
//
// The engine uses a Dictionary for its global settings ("bot"
// properties), for each session's predicates, and for the
// substitution tables used by normalization and by the gender and
// person tags.
package settings

import (
	"encoding/json"
	"regexp"
	"strings"
	"sync"
)

// Pair is one entry in a Dictionary.
type Pair struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// Dictionary is an ordered map from case-insensitive keys to string
// values.
//
// Keys remember the case they were first set with, and iteration
// follows insertion order.  A Dictionary is not safe for concurrent
// mutation, but concurrent calls to Substitute (and the other readers)
// are fine.
type Dictionary struct {
	keys   []string
	values map[string]Pair

	// compiled caches the substitution regexps built by
	// Substitute.  Any Set or Remove clears it.
	mu       sync.Mutex
	compiled []*substitution
}

// New makes an empty Dictionary.
func New() *Dictionary {
	return &Dictionary{
		values: make(map[string]Pair, 8),
	}
}

// FromPairs makes a Dictionary from the given pairs in order.
func FromPairs(pairs []Pair) *Dictionary {
	d := New()
	for _, p := range pairs {
		d.Set(p.Key, p.Value)
	}
	return d
}

// FromMap makes a Dictionary from a map.  Since maps aren't ordered,
// the resulting order is unspecified.
func FromMap(m map[string]string) *Dictionary {
	d := New()
	for k, v := range m {
		d.Set(k, v)
	}
	return d
}

func norm(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// Get returns the value for the key or "" if the key isn't set.
func (d *Dictionary) Get(key string) string {
	if d == nil {
		return ""
	}
	return d.values[norm(key)].Value
}

// Lookup is Get that also reports if the key is set.
func (d *Dictionary) Lookup(key string) (string, bool) {
	if d == nil {
		return "", false
	}
	p, have := d.values[norm(key)]
	return p.Value, have
}

// Contains reports if the key is set.
func (d *Dictionary) Contains(key string) bool {
	_, have := d.Lookup(key)
	return have
}

// Set sets (or replaces) the value for the key.
//
// Replacing a value keeps the key's original position.
func (d *Dictionary) Set(key, value string) {
	k := norm(key)
	if k == "" {
		return
	}
	p, have := d.values[k]
	if !have {
		d.keys = append(d.keys, k)
		p.Key = strings.TrimSpace(key)
	}
	p.Value = value
	d.values[k] = p
	d.forget()
}

// Remove deletes the key.
func (d *Dictionary) Remove(key string) {
	k := norm(key)
	if _, have := d.values[k]; !have {
		return
	}
	delete(d.values, k)
	for i, x := range d.keys {
		if x == k {
			d.keys = append(d.keys[:i], d.keys[i+1:]...)
			break
		}
	}
	d.forget()
}

func (d *Dictionary) forget() {
	d.mu.Lock()
	d.compiled = nil
	d.mu.Unlock()
}

// Len returns the number of keys.
func (d *Dictionary) Len() int {
	if d == nil {
		return 0
	}
	return len(d.keys)
}

// Keys returns the keys (in their original case) in order.
func (d *Dictionary) Keys() []string {
	if d == nil {
		return nil
	}
	acc := make([]string, len(d.keys))
	for i, k := range d.keys {
		acc[i] = d.values[k].Key
	}
	return acc
}

// Pairs returns the entries in order.
func (d *Dictionary) Pairs() []Pair {
	if d == nil {
		return nil
	}
	acc := make([]Pair, len(d.keys))
	for i, k := range d.keys {
		acc[i] = d.values[k]
	}
	return acc
}

// Copy makes a deep copy of the Dictionary.
func (d *Dictionary) Copy() *Dictionary {
	if d == nil {
		return New()
	}
	return FromPairs(d.Pairs())
}

// Merge sets every entry of the given Dictionary in this one.
func (d *Dictionary) Merge(other *Dictionary) {
	for _, p := range other.Pairs() {
		d.Set(p.Key, p.Value)
	}
}

// MarshalJSON renders the Dictionary as an array of pairs so that
// order survives.
func (d *Dictionary) MarshalJSON() ([]byte, error) {
	pairs := d.Pairs()
	if pairs == nil {
		pairs = []Pair{}
	}
	return json.Marshal(pairs)
}

// UnmarshalJSON reads what MarshalJSON writes.
func (d *Dictionary) UnmarshalJSON(bs []byte) error {
	var pairs []Pair
	if err := json.Unmarshal(bs, &pairs); err != nil {
		return err
	}
	x := FromPairs(pairs)
	d.keys, d.values = x.keys, x.values
	d.forget()
	return nil
}

type substitution struct {
	re          *regexp.Regexp
	replacement string
}

// Substitute treats the Dictionary as a substitution table and
// applies it to the given text.
//
// Each key is matched case-insensitively as a whole word (or whole
// phrase) and replaced by its value.  Substitutions are applied in a
// single pass, so a replacement is never itself substituted.  When
// two keys could match at the same place, the earlier key wins.
func (d *Dictionary) Substitute(text string) string {
	if d.Len() == 0 || text == "" {
		return text
	}
	subs := d.substitutions()

	var acc strings.Builder
	i := 0
	for i < len(text) {
		matched := false
		if i == 0 || !isWordByte(text[i-1]) || !isWordByte(text[i]) {
			for _, s := range subs {
				loc := s.re.FindStringIndex(text[i:])
				if loc == nil || loc[0] != 0 || loc[1] == 0 {
					continue
				}
				end := i + loc[1]
				if end < len(text) && isWordByte(text[end-1]) && isWordByte(text[end]) {
					continue
				}
				acc.WriteString(s.replacement)
				i = end
				matched = true
				break
			}
		}
		if !matched {
			acc.WriteByte(text[i])
			i++
		}
	}
	return acc.String()
}

func (d *Dictionary) substitutions() []*substitution {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.compiled != nil {
		return d.compiled
	}
	acc := make([]*substitution, 0, len(d.keys))
	for _, p := range d.Pairs() {
		if strings.TrimSpace(p.Key) == "" {
			continue
		}
		re, err := regexp.Compile(`(?i)^` + regexp.QuoteMeta(p.Key))
		if err != nil {
			continue
		}
		acc = append(acc, &substitution{re: re, replacement: p.Value})
	}
	d.compiled = acc
	return acc
}

func isWordByte(b byte) bool {
	return b == '_' || b == '\'' ||
		('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z') || ('0' <= b && b <= '9') ||
		0x80 <= b
}
