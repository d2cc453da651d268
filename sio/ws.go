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
	"context"
	"net/http"
	"sync"

	"github.com/Comcast/chatter/core"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WebSocketCouplings is a Couplings that serves WebSocket clients.
//
// Each connection is its own session, which gets a random id.  A
// client can send plain text or a JSON Message.  Each reply is
// written back to the connection for its session as JSON.
type WebSocketCouplings struct {
	Logger *zap.Logger

	upgrader websocket.Upgrader

	// conns maps session ids to connections.
	conns sync.Map

	in   chan *Message
	out  chan *core.Reply
	done chan bool
}

// NewWebSocketCouplings makes Couplings.  Use Handler to serve them.
func NewWebSocketCouplings(logger *zap.Logger) *WebSocketCouplings {
	return &WebSocketCouplings{
		Logger: logger,
		in:     make(chan *Message),
		out:    make(chan *core.Reply),
		done:   make(chan bool),
	}
}

// conn serializes writes to one websocket connection.
type conn struct {
	sync.Mutex
	*websocket.Conn
}

func (c *conn) write(r *core.Reply) error {
	c.Lock()
	defer c.Unlock()
	return c.WriteJSON(r)
}

// Handler returns the http.Handler for the WebSocket API.
func (c *WebSocketCouplings) Handler(ctx context.Context) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := c.upgrader.Upgrade(w, r, nil)
		if err != nil {
			c.Logger.Warn("upgrade error", zap.Error(err))
			return
		}
		defer ws.Close()

		session := uuid.New().String()
		c.conns.Store(session, &conn{Conn: ws})
		defer c.conns.Delete(session)

		c.Logger.Info("websocket session", zap.String("session", session))

		for {
			_, bs, err := ws.ReadMessage()
			if err != nil {
				c.Logger.Debug("read error", zap.String("session", session), zap.Error(err))
				return
			}
			m, err := ParseMessage(bs, session)
			if err != nil {
				c.Logger.Warn("bad message", zap.String("session", session), zap.Error(err))
				continue
			}
			// A connection can only speak for its own session.
			m.Session = session
			if m.Text == "" {
				continue
			}
			select {
			case <-ctx.Done():
				return
			case <-c.done:
				return
			case c.in <- m:
			}
		}
	})
}

// Start starts routing replies to connections.
func (c *WebSocketCouplings) Start(ctx context.Context) error {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.done:
				return
			case r := <-c.out:
				x, have := c.conns.Load(r.SessionId)
				if !have {
					c.Logger.Warn("no connection", zap.String("session", r.SessionId))
					continue
				}
				if err := x.(*conn).write(r); err != nil {
					c.Logger.Warn("write error", zap.String("session", r.SessionId), zap.Error(err))
				}
			}
		}
	}()
	return nil
}

// IO returns the channels that NewWebSocketCouplings made.
func (c *WebSocketCouplings) IO(ctx context.Context) (chan *Message, chan *core.Reply, chan bool, error) {
	return c.in, c.out, c.done, nil
}

// Stop closes every connection.
func (c *WebSocketCouplings) Stop(ctx context.Context) error {
	close(c.done)
	c.conns.Range(func(k, v interface{}) bool {
		v.(*conn).Close()
		return true
	})
	return nil
}
