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

// Package config defines the engine's configuration and reads it
// from YAML.
//
// Tables (bot properties, default predicates, and the substitution
// tables) are YAML mappings.  Their order matters for substitutions,
// so they're read as yaml.MapSlice rather than as Go maps.
package config

import (
	"fmt"
	"io/ioutil"
	"time"

	"github.com/Comcast/chatter/settings"

	"gopkg.in/yaml.v2"
)

// Config is everything an Engine needs to know that isn't the corpus
// itself.
type Config struct {
	// Name is the bot's name, which is also available as the bot
	// property "name" unless Bot overrides it.
	Name string `yaml:"name"`

	// Version is reported by the "version" tag.
	Version string `yaml:"version"`

	// Locale is a BCP 47 tag used for case transforms and dates.
	Locale string `yaml:"locale"`

	// Timeout is the budget for one top-level turn, including
	// every srai sub-turn.
	Timeout time.Duration `yaml:"timeout"`

	// TimeoutMessage replaces the output of a turn that timed out.
	TimeoutMessage string `yaml:"timeoutMessage"`

	// MaxDepth bounds srai nesting.
	MaxDepth int `yaml:"maxDepth"`

	// HistorySize is the number of turns each session remembers.
	HistorySize int `yaml:"historySize"`

	// Splitters end sentences.
	Splitters []string `yaml:"splitters"`

	Bot           yaml.MapSlice `yaml:"bot,omitempty"`
	Predicates    yaml.MapSlice `yaml:"predicates,omitempty"`
	Substitutions yaml.MapSlice `yaml:"substitutions,omitempty"`
	Gender        yaml.MapSlice `yaml:"gender,omitempty"`
	Person        yaml.MapSlice `yaml:"person,omitempty"`
	Person2       yaml.MapSlice `yaml:"person2,omitempty"`

	// Corpus lists category files (AIML or YAML) or directories
	// of them.
	Corpus []string `yaml:"corpus,omitempty"`

	// Storage is the filename of a session database: a JSON file if
	// the name ends in ".json" and otherwise a bolt database.  Empty
	// means sessions aren't persisted.
	Storage string `yaml:"storage,omitempty"`

	// Scripts enables the script tag's interpreters.
	Scripts bool `yaml:"scripts"`
}

// Default returns a complete Config with reasonable values.
func Default() *Config {
	return &Config{
		Name:           "chatter",
		Version:        "1.0",
		Locale:         "en-US",
		Timeout:        2 * time.Second,
		TimeoutMessage: "Sorry, that took too long.",
		MaxDepth:       32,
		HistorySize:    10,
		Splitters:      []string{".", "!", "?", ";"},
		Predicates: yaml.MapSlice{
			{Key: "topic", Value: "*"},
		},
		Substitutions: yaml.MapSlice{
			{Key: "can't", Value: "can not"},
			{Key: "won't", Value: "will not"},
			{Key: "don't", Value: "do not"},
			{Key: "doesn't", Value: "does not"},
			{Key: "isn't", Value: "is not"},
			{Key: "i'm", Value: "i am"},
			{Key: "you're", Value: "you are"},
			{Key: "it's", Value: "it is"},
			{Key: "what's", Value: "what is"},
		},
		Gender: yaml.MapSlice{
			{Key: "he", Value: "she"},
			{Key: "she", Value: "he"},
			{Key: "him", Value: "her"},
			{Key: "his", Value: "her"},
			{Key: "her", Value: "him"},
			{Key: "himself", Value: "herself"},
			{Key: "herself", Value: "himself"},
		},
		Person: yaml.MapSlice{
			{Key: "i am", Value: "you are"},
			{Key: "you are", Value: "I am"},
			{Key: "i", Value: "you"},
			{Key: "me", Value: "you"},
			{Key: "my", Value: "your"},
			{Key: "mine", Value: "yours"},
			{Key: "myself", Value: "yourself"},
			{Key: "your", Value: "my"},
			{Key: "yours", Value: "mine"},
			{Key: "yourself", Value: "myself"},
			{Key: "you", Value: "me"},
		},
		Person2: yaml.MapSlice{
			{Key: "i am", Value: "he or she is"},
			{Key: "i was", Value: "he or she was"},
			{Key: "i", Value: "he or she"},
			{Key: "me", Value: "him or her"},
			{Key: "my", Value: "his or her"},
			{Key: "mine", Value: "his or hers"},
			{Key: "myself", Value: "him or herself"},
		},
	}
}

// Parse reads YAML over the defaults.
//
// A table that appears in the YAML replaces the default table
// entirely.
func Parse(bs []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(bs, c); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Load reads the named YAML file over the defaults.
func Load(filename string) (*Config, error) {
	bs, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return Parse(bs)
}

// BadConfig describes a Config with an unusable value.
type BadConfig struct {
	Field  string
	Reason string
}

func (e *BadConfig) Error() string {
	return fmt.Sprintf("config: bad %s: %s", e.Field, e.Reason)
}

// Validate checks the Config.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return &BadConfig{"timeout", "must be positive"}
	}
	if c.MaxDepth <= 0 {
		return &BadConfig{"maxDepth", "must be positive"}
	}
	if c.HistorySize <= 0 {
		return &BadConfig{"historySize", "must be positive"}
	}
	return nil
}

// Table converts a YAML mapping to a settings.Dictionary in order.
//
// Keys and values are rendered with fmt's %v, so "yes" and 42 come
// out as "true" and "42".
func Table(ms yaml.MapSlice) *settings.Dictionary {
	d := settings.New()
	for _, item := range ms {
		var v string
		if item.Value != nil {
			v = fmt.Sprintf("%v", item.Value)
		}
		d.Set(fmt.Sprintf("%v", item.Key), v)
	}
	return d
}

// BotSettings returns the bot properties.  "name" and "version"
// default to Name and Version.
func (c *Config) BotSettings() *settings.Dictionary {
	d := settings.New()
	d.Set("name", c.Name)
	d.Set("version", c.Version)
	d.Merge(Table(c.Bot))
	return d
}
