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

package main

import (
	"context"
	"flag"
	"net/http"
	"time"

	"github.com/Comcast/chatter/sio"

	"go.uber.org/zap"
)

// WebSocketCouplings adds an HTTP server to sio.WebSocketCouplings.
type WebSocketCouplings struct {
	*sio.WebSocketCouplings

	server *http.Server
	logger *zap.Logger
}

// NewWebSocketCouplings makes WebSocket couplings from command-line
// arguments.
//
// The server has the WebSocket API at /ws and a simple page for
// testing at /.
func NewWebSocketCouplings(ctx context.Context, logger *zap.Logger, args []string) (*WebSocketCouplings, *flag.FlagSet) {
	var (
		fs   = flag.NewFlagSet("ws", flag.ExitOnError)
		port = fs.String("port", ":8080", "HTTP server port")
	)

	if args == nil {
		return nil, fs
	}

	fs.Parse(args)

	c := &WebSocketCouplings{
		WebSocketCouplings: sio.NewWebSocketCouplings(logger),
		logger:             logger,
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", c.Handler(ctx))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(page))
	})
	c.server = &http.Server{
		Addr:    *port,
		Handler: mux,
	}

	return c, fs
}

// Start starts the HTTP server.
func (c *WebSocketCouplings) Start(ctx context.Context) error {
	if err := c.WebSocketCouplings.Start(ctx); err != nil {
		return err
	}
	go func() {
		c.logger.Info("serving", zap.String("addr", c.server.Addr))
		if err := c.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			c.logger.Error("server", zap.Error(err))
		}
	}()
	return nil
}

// Stop shuts down the HTTP server.
func (c *WebSocketCouplings) Stop(ctx context.Context) error {
	if err := c.WebSocketCouplings.Stop(ctx); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.server.Shutdown(ctx)
}

const page = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<script>
window.addEventListener("load", function(evt) {
    var output = document.getElementById("output");
    var input = document.getElementById("input");
    var ws = new WebSocket("ws://" + location.host + "/ws");

    var print = function(message) {
        var d = document.createElement("div");
        d.textContent = message;
        output.insertBefore(d, output.firstChild);
    };

    ws.onmessage = function(evt) {
        print("BOT: " + JSON.parse(evt.data).output);
    };
    ws.onclose = function(evt) {
        print("CLOSED");
    };

    document.getElementById("send").onclick = function(evt) {
        print("YOU: " + input.value);
        ws.send(input.value);
        input.value = "";
        return false;
    };
});
</script>
<style>
body { margin: 2em }
</style>
</head>
<body>
<form>
<input id="input" size="80" type="text">
<button id="send">Send</button>
</form>
<hr>
<div id="output"></div>
</body>
</html>
`
