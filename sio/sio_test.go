package sio

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Comcast/chatter/core"
	"github.com/Comcast/chatter/util/testutil"

	"github.com/gorilla/websocket"
)

func testEngine(t *testing.T) *core.Engine {
	logger, _ := testutil.ObservedLogger()
	e, err := core.New(nil, core.WithLogger(logger))
	if err != nil {
		t.Fatal(err)
	}
	if err = e.AddCategory(core.Path("HELLO", "*", "*", "*"), "Hi there.", "test"); err != nil {
		t.Fatal(err)
	}
	if err = e.AddCategory(core.Path("WHO AM I", "*", "*", "*"), "You are <id/>.", "test"); err != nil {
		t.Fatal(err)
	}
	return e
}

func TestParseMessage(t *testing.T) {
	m, err := ParseMessage([]byte(" hello there \n"), "s1")
	if err != nil {
		t.Fatal(err)
	}
	if m.Session != "s1" || m.Text != "hello there" {
		t.Fatal(testutil.JS(m))
	}

	if m, err = ParseMessage([]byte(`{"session":"s2","text":"hi"}`), "s1"); err != nil {
		t.Fatal(err)
	}
	if m.Session != "s2" || m.Text != "hi" {
		t.Fatal(testutil.JS(m))
	}

	if m, err = ParseMessage([]byte(`{"text":"hi"}`), "s1"); err != nil {
		t.Fatal(err)
	}
	if m.Session != "s1" {
		t.Fatal(testutil.JS(m))
	}

	if _, err = ParseMessage([]byte(`{"text":`), "s1"); err == nil {
		t.Fatal("should have complained")
	}
}

func TestStdio(t *testing.T) {
	e := testEngine(t)
	logger, _ := testutil.ObservedLogger()

	var out bytes.Buffer
	s := NewStdio("s1")
	s.Logger = logger
	s.In = strings.NewReader(`hello
# a comment

who am i
{"session":"s2","text":"who am i"}
quit
hello
`)
	s.Out = &out

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := Run(ctx, e, s, logger); err != nil {
		t.Fatal(err)
	}

	want := "Hi there.\nYou are s1.\nYou are s2.\n"
	if got := out.String(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestStdioTags(t *testing.T) {
	e := testEngine(t)
	logger, _ := testutil.ObservedLogger()

	var out bytes.Buffer
	s := NewStdio("s1")
	s.In = strings.NewReader("hello")
	s.Out = &out
	s.Tags = true
	s.EchoInput = true

	if err := Run(context.Background(), e, s, logger); err != nil {
		t.Fatal(err)
	}

	want := "input hello\nreply Hi there.\n"
	if got := out.String(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestParseTopic(t *testing.T) {
	tests := []struct {
		in    string
		topic string
		qos   byte
	}{
		{"chat/in/+", "chat/in/+", 0},
		{"chat/in/+:1", "chat/in/+", 1},
		{" chat/out:2 ", "chat/out", 2},
		{"chat/out:7", "chat/out:7", 0},
		{"", "", 0},
	}
	for _, tt := range tests {
		topic, qos := parseTopic(tt.in)
		if topic != tt.topic || qos != tt.qos {
			t.Fatalf("parseTopic(%q) = %q, %d", tt.in, topic, qos)
		}
	}
}

func TestMQTTHandler(t *testing.T) {
	logger, _ := testutil.ObservedLogger()
	c := &MQTTCouplings{
		ReplyTopic: "chat/out/:1",
		InTimeout:  time.Second,
		Logger:     logger,
		incoming:   make(chan *Message),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go c.inHandler(ctx, "chat/in/s7", []byte("hello"))

	select {
	case m := <-c.incoming:
		if m.Session != "s7" || m.Text != "hello" {
			t.Fatal(testutil.JS(m))
		}
	case <-time.After(time.Second):
		t.Fatal("nothing forwarded")
	}

	topic, qos := c.replyTopic("s7")
	if topic != "chat/out/s7" || qos != 1 {
		t.Fatalf("%s %d", topic, qos)
	}
}

func TestWebSocket(t *testing.T) {
	e := testEngine(t)
	logger, _ := testutil.ObservedLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := NewWebSocketCouplings(logger)
	server := httptest.NewServer(c.Handler(ctx))
	defer server.Close()

	ran := make(chan error)
	go func() {
		ran <- Run(ctx, e, c, logger)
	}()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer ws.Close()

	ws.SetReadDeadline(time.Now().Add(5 * time.Second))

	if err = ws.WriteMessage(websocket.TextMessage, []byte("hello")); err != nil {
		t.Fatal(err)
	}
	var reply core.Reply
	if err = ws.ReadJSON(&reply); err != nil {
		t.Fatal(err)
	}
	if reply.Output != "Hi there." || reply.SessionId == "" {
		t.Fatal(testutil.JS(reply))
	}

	// A connection can't speak for another session.
	if err = ws.WriteMessage(websocket.TextMessage, []byte(`{"session":"other","text":"who am i"}`)); err != nil {
		t.Fatal(err)
	}
	var again core.Reply
	if err = ws.ReadJSON(&again); err != nil {
		t.Fatal(err)
	}
	if again.SessionId != reply.SessionId || again.Output != "You are "+reply.SessionId+"." {
		t.Fatal(testutil.JS(again))
	}

	cancel()
	select {
	case err := <-ran:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run didn't return")
	}
}
