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

// Package sio couples an Engine to the outside world: stdin/stdout,
// an MQTT broker, or WebSocket clients.
package sio

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/Comcast/chatter/core"

	"go.uber.org/zap"
)

// Message is one chat input.
//
// An empty Session asks the Engine to start an anonymous session.
type Message struct {
	Session string `json:"session,omitempty"`
	Text    string `json:"text"`
}

// ParseMessage accepts either a JSON Message or plain text, which is
// attributed to the given session.
func ParseMessage(bs []byte, session string) (*Message, error) {
	s := strings.TrimSpace(string(bs))
	if strings.HasPrefix(s, "{") {
		var m Message
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			return nil, err
		}
		if m.Session == "" {
			m.Session = session
		}
		return &m, nil
	}
	return &Message{
		Session: session,
		Text:    s,
	}, nil
}

// Couplings provide channels for chat input and reply output.
//
// For example, an implementation could couple an Engine to an MQTT
// broker.
type Couplings interface {
	// Start initializes the Couplings.
	Start(context.Context) error

	// IO returns the input and reply channels.  The done channel
	// is closed when no more input will arrive.
	IO(context.Context) (in chan *Message, out chan *core.Reply, done chan bool, err error)

	// Stop shuts down the Couplings.
	Stop(context.Context) error
}

// Chatter is what Run needs from an Engine.
type Chatter interface {
	Chat(ctx context.Context, raw, sessionId string) (*core.Reply, error)
}

// Run starts the Couplings and then sends every input message to the
// Chatter and every reply to the Couplings.
//
// Run returns when the Couplings say that input is done or when ctx
// is done.  The Couplings are stopped before Run returns.
func Run(ctx context.Context, e Chatter, c Couplings, logger *zap.Logger) error {
	if err := c.Start(ctx); err != nil {
		return err
	}

	in, out, done, err := c.IO(ctx)
	if err != nil {
		c.Stop(ctx)
		return err
	}

LOOP:
	for {
		select {
		case <-ctx.Done():
			break LOOP
		case <-done:
			break LOOP
		case m := <-in:
			if m == nil {
				break LOOP
			}
			reply, err := e.Chat(ctx, m.Text, m.Session)
			if err != nil {
				logger.Error("chat failed",
					zap.String("session", m.Session),
					zap.Error(err))
				continue
			}
			select {
			case <-ctx.Done():
				break LOOP
			case out <- reply:
			}
		}
	}

	logger.Info("sio done")

	return c.Stop(ctx)
}
