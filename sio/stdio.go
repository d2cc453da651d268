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

package sio

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/Comcast/chatter/core"

	"go.uber.org/zap"
)

// Stdio is a fairly simple Couplings that uses stdin for input and
// stdout for output.
//
// Each input line is a chat message: plain text for the default
// session or a JSON Message.  Blank lines and lines that start with
// "#" are ignored.  The line "quit" ends input.
type Stdio struct {
	// In is coupled to chat input.
	In io.Reader

	// Out is coupled to replies.
	Out io.Writer

	// Session is the session for plain text input.
	Session string

	// ShellExpand enables input to include inline shell commands
	// delimited by '<<' and '>>'.  Use at your own risk, of
	// course!
	ShellExpand bool

	// Timestamps prepends a timestamp to each output line.
	Timestamps bool

	// EchoInput writes input lines (tagged with "input") to the
	// output.
	EchoInput bool

	// Tags prefixes tags indicating type of output ("input",
	// "reply").
	Tags bool

	// PadTags adds some padding to tags.
	PadTags bool

	// JSON writes each whole Reply as JSON rather than just its
	// output text.
	JSON bool

	Logger *zap.Logger

	// InputEOF will be closed on EOF from In.
	InputEOF chan bool

	in  chan *Message
	out chan *core.Reply
	wg  sync.WaitGroup

	// mu serializes writes to Out.
	mu sync.Mutex
}

// NewStdio creates a new Stdio.
//
// In and Out are initialized with os.Stdin and os.Stdout
// respectively.
func NewStdio(session string) *Stdio {
	return &Stdio{
		In:       os.Stdin,
		Out:      os.Stdout,
		Session:  session,
		Logger:   zap.NewNop(),
		InputEOF: make(chan bool),
	}
}

// Start does nothing.
func (s *Stdio) Start(ctx context.Context) error {
	return nil
}

// Stop waits until all replies have been written.
func (s *Stdio) Stop(ctx context.Context) error {
	if s.out != nil {
		close(s.out)
	}
	s.wg.Wait()
	return nil
}

func (s *Stdio) printf(tag, format string, args ...interface{}) {
	if s.PadTags {
		tag = fmt.Sprintf("% 10s", tag)
	}
	if s.Tags {
		format = tag + " " + format
	}
	if s.Timestamps {
		ts := fmt.Sprintf("%-31s", time.Now().UTC().Format(time.RFC3339Nano))
		format = ts + " " + format
	}
	s.mu.Lock()
	fmt.Fprintf(s.Out, format, args...)
	s.mu.Unlock()
}

// IO returns channels for reading from In and writing to Out.
func (s *Stdio) IO(ctx context.Context) (chan *Message, chan *core.Reply, chan bool, error) {
	s.in = make(chan *Message)
	s.out = make(chan *core.Reply)

	go func() {
		defer close(s.InputEOF)
		stdin := bufio.NewReader(s.In)
		for {
			line, err := stdin.ReadString('\n')
			if err != nil && err != io.EOF {
				s.Logger.Error("stdin error", zap.Error(err))
				return
			}
			eof := err == io.EOF
			if strings.TrimSpace(line) == "quit" {
				return
			}
			if s.EchoInput && line != "" {
				s.printf("input", "%s\n", strings.TrimRight(line, "\n"))
			}
			if trimmed := strings.TrimSpace(line); trimmed != "" && !strings.HasPrefix(trimmed, "#") {
				if s.ShellExpand {
					if line, err = ShellExpand(line); err != nil {
						s.Logger.Error("shell expansion", zap.Error(err))
						return
					}
				}
				m, err := ParseMessage([]byte(line), s.Session)
				if err != nil {
					s.Logger.Warn("bad input", zap.String("line", line), zap.Error(err))
				} else {
					select {
					case <-ctx.Done():
						return
					case s.in <- m:
					}
				}
			}
			if eof {
				return
			}
		}
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for r := range s.out {
			if s.JSON {
				s.printf("reply", "%s\n", JS(r))
			} else {
				s.printf("reply", "%s\n", r.Output)
			}
		}
	}()

	return s.in, s.out, s.InputEOF, nil
}
