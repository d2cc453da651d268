/* Copyright 2018-2019 Comcast Cable Communications Management, LLC
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

// Package expect is a tool for testing a corpus with scripted
// conversations.
//
// You construct a Session, which has inputs and expected outputs.
// Then run the session against an Engine to see if the expected
// outputs actually appeared.
//
// See ../../cmd/corpustool for command-line use.
package expect

import (
	"context"
	"fmt"
	"io/ioutil"
	"regexp"
	"time"

	"github.com/Comcast/chatter/sio"

	"github.com/google/uuid"
	"github.com/jsccast/yaml"
	"go.uber.org/zap"
)

// Turn is an input and a pattern for its reply.
type Turn struct {
	// Doc is an opaque documentation string.
	Doc string `json:"doc,omitempty" yaml:"doc,omitempty"`

	// WaitBefore is the time to wait before sending the input.
	WaitBefore time.Duration `json:"waitBefore,omitempty" yaml:"waitBefore,omitempty"`

	Input string `json:"input" yaml:"input"`

	// Want is a regular expression that the entire reply must
	// match.  Matching is case-insensitive.
	Want string `json:"want" yaml:"want"`

	// Inverted means that a matching reply isn't desired!
	Inverted bool `json:"inverted,omitempty" yaml:"inverted,omitempty"`

	// TimedOut says the reply must (or must not) have timed out.
	TimedOut *bool `json:"timedOut,omitempty" yaml:"timedOut,omitempty"`
}

// Session is mostly a sequence of Turns in one chat session.
type Session struct {
	// Doc is an opaque documentation string.
	Doc string `json:"doc,omitempty" yaml:"doc,omitempty"`

	// Id is the chat session id.  Empty means a random id.
	Id string `json:"id,omitempty" yaml:"id,omitempty"`

	Turns []Turn `json:"turns" yaml:"turns"`

	// DefaultTimeout is the timeout for each Turn.
	DefaultTimeout time.Duration `json:"defaultTimeout,omitempty" yaml:"defaultTimeout,omitempty"`

	Verbose bool `json:"verbose,omitempty" yaml:"verbose,omitempty"`
}

// Failure reports a Turn whose reply wasn't what was expected.
type Failure struct {
	Turn  int
	Input string
	Want  string
	Got   string
	Doc   string
}

func (f *Failure) Error() string {
	return fmt.Sprintf(`turn %d "%s": got "%s", want "%s"`, f.Turn, f.Input, f.Got, f.Want)
}

// Read reads a Session from YAML (or JSON).
func Read(filename string) (*Session, error) {
	bs, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var s Session
	if err = yaml.Unmarshal(bs, &s); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return &s, nil
}

func compile(want string) (*regexp.Regexp, error) {
	return regexp.Compile(`(?is)^(?:` + want + `)$`)
}

// Run sends each Turn's input and checks the reply.
//
// Run stops at the first Turn whose reply is wrong and returns a
// *Failure.
func (s *Session) Run(ctx context.Context, c sio.Chatter, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	id := s.Id
	if id == "" {
		id = "expect-" + uuid.New().String()
	}

	timeout := s.DefaultTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	for i, t := range s.Turns {
		want, err := compile(t.Want)
		if err != nil {
			return fmt.Errorf("turn %d: %w", i, err)
		}

		if 0 < t.WaitBefore {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(t.WaitBefore):
			}
		}

		tctx, cancel := context.WithTimeout(ctx, timeout)
		reply, err := c.Chat(tctx, t.Input, id)
		cancel()
		if err != nil {
			return fmt.Errorf("turn %d: %w", i, err)
		}

		if s.Verbose {
			logger.Info("turn",
				zap.Int("turn", i),
				zap.String("input", t.Input),
				zap.String("output", reply.Output))
		}

		ok := want.MatchString(reply.Output) != t.Inverted
		if t.TimedOut != nil && *t.TimedOut != reply.TimedOut {
			ok = false
		}
		if !ok {
			return &Failure{
				Turn:  i,
				Input: t.Input,
				Want:  t.Want,
				Got:   reply.Output,
				Doc:   t.Doc,
			}
		}
	}

	return nil
}
