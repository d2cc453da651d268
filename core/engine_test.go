package core

import (
	"context"
	"errors"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Comcast/chatter/config"
	"github.com/Comcast/chatter/storage/bolt"
	"github.com/Comcast/chatter/template"
	. "github.com/Comcast/chatter/util/testutil"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type category struct {
	input, that, topic, emotion string
	template                    string
}

func star(s string) string {
	if s == "" {
		return "*"
	}
	return s
}

func testEngine(t *testing.T, conf *config.Config, cats []category, opts ...Option) (*Engine, *observer.ObservedLogs) {
	logger, logs := ObservedLogger()
	opts = append([]Option{WithLogger(logger)}, opts...)
	e, err := New(conf, opts...)
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range cats {
		path := Path(c.input, star(c.that), star(c.topic), star(c.emotion))
		if err := e.AddCategory(path, c.template, "test"); err != nil {
			t.Fatal(err)
		}
	}
	return e, logs
}

type turn struct {
	input, want string
}

func converse(t *testing.T, e *Engine, session string, turns []turn) {
	ctx := context.Background()
	for _, tt := range turns {
		reply, err := e.Chat(ctx, tt.input, session)
		if err != nil {
			t.Fatal(err)
		}
		if reply.Output != tt.want {
			t.Fatalf("%q: got %q, want %q", tt.input, reply.Output, tt.want)
		}
	}
}

var greetings = []category{
	{input: "HELLO", template: "Hi there."},
	{input: "MY NAME IS *", template: `Nice to meet you <set name="name"><star/></set>.`},
	{input: "WHAT IS MY NAME", template: `Your name is <get name="name"/>.`},
}

func TestEndToEnd(t *testing.T) {
	e, logs := testEngine(t, nil, greetings)

	converse(t, e, "s1", []turn{
		{"hello", "Hi there."},
		{"my name is Ada", "Nice to meet you Ada."},
		{"What is my name?", "Your name is Ada."},
	})

	s, err := e.Session(context.Background(), "s1")
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Predicates.Get("name"); got != "Ada" {
		t.Fatalf("name %q", got)
	}
	if n := CountLogged(logs, zap.WarnLevel, ""); n != 0 {
		t.Fatalf("%d warnings: %s", n, JS(logs.All()))
	}
}

func TestBareCategories(t *testing.T) {
	e, logs := testEngine(t, nil, nil)
	for _, c := range [][3]string{
		{"HELLO", "Hi there.", "f1"},
		{"MY NAME IS *", `Nice to meet you <set name="name"><star/></set>.`, "f1"},
	} {
		if err := e.AddCategory(c[0], c[1], c[2]); err != nil {
			t.Fatal(err)
		}
	}

	converse(t, e, "s1", []turn{
		{"hello", "Hi there."},
		{"my name is Ada", "Nice to meet you Ada."},
	})

	s, err := e.Session(context.Background(), "s1")
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Predicates.Get("name"); got != "Ada" {
		t.Fatalf("name %q", got)
	}
	if n := CountLogged(logs, zap.WarnLevel, ""); n != 0 {
		t.Fatalf("%d warnings: %s", n, JS(logs.All()))
	}
}

func TestNoMatch(t *testing.T) {
	e, logs := testEngine(t, nil, greetings)

	reply, err := e.Chat(context.Background(), "goodbye. hello", "s1")
	if err != nil {
		t.Fatal(err)
	}
	if reply.Output != "Hi there." {
		t.Fatalf("got %q", reply.Output)
	}
	if len(reply.Matches) != 2 || reply.Matches[0].Template != "" {
		t.Fatal(JS(reply.Matches))
	}
	if n := CountLogged(logs, zap.WarnLevel, "no match"); n != 1 {
		t.Fatalf("no match warnings: %d", n)
	}
}

func TestAnonymousSession(t *testing.T) {
	e, _ := testEngine(t, nil, greetings)
	reply, err := e.Chat(context.Background(), "hello", "")
	if err != nil {
		t.Fatal(err)
	}
	if reply.SessionId == "" {
		t.Fatal("no session id")
	}
	if ids := e.Sessions(); len(ids) != 1 || ids[0] != reply.SessionId {
		t.Fatal(ids)
	}
}

func TestThatPath(t *testing.T) {
	e, _ := testEngine(t, nil, []category{
		{input: "QUESTION", template: "I like dogs. Do you like cats?"},
		{input: "YES", that: "DO YOU LIKE CATS", template: "Me too."},
		{input: "YES", template: "Yes what?"},
		{input: "WHAT DID YOU SAY", template: `I said "<that/>" after you said "<input/>".`},
		{input: "AND BEFORE", template: `<that index="2,1"/>`},
	})

	converse(t, e, "s1", []turn{
		{"yes", "Yes what?"},
		{"question", "I like dogs. Do you like cats?"},
		{"yes", "Me too."},
		{"what did you say", `I said "Me too." after you said "yes".`},
		{"and before", "Me too."},
	})
}

func TestTopic(t *testing.T) {
	e, _ := testEngine(t, nil, []category{
		{input: "LET US TALK ABOUT *", template: `Sure, <set name="topic"><star/></set>.`},
		{input: "*", topic: "CATS", template: "Cats are great."},
		{input: "*", template: "Hmm."},
	})

	converse(t, e, "s1", []turn{
		{"whatever", "Hmm."},
		{"let us talk about cats", "Sure, cats."},
		{"whatever", "Cats are great."},
	})
}

func TestEmotion(t *testing.T) {
	e, _ := testEngine(t, nil, []category{
		{input: "HELLO", emotion: "ANGRY", template: "Please calm down."},
		{input: "HELLO", template: "Hi there."},
		{input: "HOW DO I SEEM", template: "You seem <lowercase><emotionstar/></lowercase>."},
	})

	converse(t, e, "s1", []turn{
		{"hello", "Hi there."},
		{"how do I seem", "You seem neutral."},
		{"I am angry! Hello", "Please calm down."},
	})
}

func TestEmotionsDisabled(t *testing.T) {
	e, _ := testEngine(t, nil, []category{
		{input: "HELLO", emotion: "ANGRY", template: "Please calm down."},
		{input: "HELLO", template: "Hi there."},
	}, WithEmotions(nil))

	converse(t, e, "s1", []turn{
		{"I am angry! Hello", "Hi there."},
	})
}

func TestSrai(t *testing.T) {
	e, _ := testEngine(t, nil, append([]category{
		{input: "HI", template: "<srai>hello</srai>"},
		{input: "HI *", template: "<sr/>"},
		{input: "CALL ME *", template: "<srai>my name is <star/></srai>"},
	}, greetings...))

	converse(t, e, "s1", []turn{
		{"hi", "Hi there."},
		{"hi hello", "Hi there."},
		{"call me Grace", "Nice to meet you Grace."},
		{"what is my name", "Your name is Grace."},
	})

	// srai sub-turns don't appear in the history.
	s, _ := e.Session(context.Background(), "s1")
	if n := len(s.History); n != 4 {
		t.Fatalf("history %d", n)
	}
}

func TestSraiTooDeep(t *testing.T) {
	conf := config.Default()
	conf.MaxDepth = 3
	e, logs := testEngine(t, conf, []category{
		{input: "LOOP", template: "<srai>loop</srai>"},
	})

	reply, err := e.Chat(context.Background(), "loop", "s1")
	if err != nil {
		t.Fatal(err)
	}
	if reply.Output != "" || reply.TimedOut {
		t.Fatal(JS(reply))
	}
	if n := CountLogged(logs, zap.WarnLevel, "srai too deep"); n != 1 {
		t.Fatalf("warnings %d", n)
	}
}

// sleeper is a custom tag that just takes some time.
func sleeper(d time.Duration) TagSpec {
	return TagSpec{
		Order: EagerChildren,
		New: func(c *Call) Handler {
			return HandlerFunc(func(n *template.Node) string {
				time.Sleep(d)
				return ""
			})
		},
	}
}

func TestSraiSharesDeadline(t *testing.T) {
	cats := []category{
		{input: "A", template: "<sleep/><srai>b</srai>"},
		{input: "B", template: "<sleep/><srai>c</srai>"},
		{input: "C", template: "<sleep/>done"},
	}

	t.Run("enough", func(t *testing.T) {
		conf := config.Default()
		conf.Timeout = 5 * time.Second
		e, _ := testEngine(t, conf, cats)
		if err := e.RegisterTag("sleep", sleeper(30*time.Millisecond)); err != nil {
			t.Fatal(err)
		}
		converse(t, e, "s1", []turn{{"a", "done"}})
	})

	t.Run("shared", func(t *testing.T) {
		// Each step is well under the timeout, but the chain
		// isn't.
		conf := config.Default()
		conf.Timeout = 50 * time.Millisecond
		e, logs := testEngine(t, conf, cats)
		if err := e.RegisterTag("sleep", sleeper(30*time.Millisecond)); err != nil {
			t.Fatal(err)
		}

		reply, err := e.Chat(context.Background(), "a", "s1")
		if err != nil {
			t.Fatal(err)
		}
		if !reply.TimedOut {
			t.Fatal("should have timed out")
		}
		if reply.Output != conf.TimeoutMessage {
			t.Fatalf("got %q", reply.Output)
		}
		if n := CountLogged(logs, zap.WarnLevel, "timed out"); n != 1 {
			t.Fatalf("timeout warnings: %d", n)
		}
		if n := CountLogged(logs, zap.WarnLevel, "no match"); n != 0 {
			t.Fatalf("no match warnings: %d", n)
		}
	})
}

func TestExpiredEverywhere(t *testing.T) {
	e, logs := testEngine(t, nil, greetings)
	s, err := e.Session(context.Background(), "s1")
	if err != nil {
		t.Fatal(err)
	}

	req := e.NewRequest(context.Background(), "hello", s)
	req.StartedOn = req.StartedOn.Add(-time.Hour)

	if res := e.Respond(req); res.Output() != "" {
		t.Fatalf("got %q", res.Output())
	}
	if !req.TimedOut() {
		t.Fatal("not timed out")
	}

	sub := req.child("hello")
	if res := e.Respond(sub); res.Output() != "" {
		t.Fatalf("got %q", res.Output())
	}

	c := &Call{Engine: e, Session: s, Request: req}
	if got := e.Process(mustParse(t, "Hi there."), c); got != "" {
		t.Fatalf("got %q", got)
	}

	// A fresh sub-request of an expired request also sees the
	// expiration without logging again.
	fresh := &Request{Raw: "x", StartedOn: req.StartedOn, Parent: req, timeout: e.conf.Timeout, logger: e.logger}
	if !fresh.Expired() {
		t.Fatal("fresh sub-request not expired")
	}

	if n := CountLogged(logs, zap.WarnLevel, "timed out"); n != 1 {
		t.Fatalf("timeout warnings: %d", n)
	}
}

func TestLearn(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, "more.yaml")
	src := `
categories:
  - pattern: GOODBYE
    template: See you later.
`
	if err := ioutil.WriteFile(filename, []byte(src), 0644); err != nil {
		t.Fatal(err)
	}

	e, logs := testEngine(t, nil, []category{
		{input: "STUDY", template: "<think><learn>" + filename + "</learn></think>Done."},
		{input: "STUDY HARDER", template: "<learn>" + filename + ".missing</learn>Oops."},
		{input: "COUNT", template: "I know <size/> categories."},
	})

	converse(t, e, "s1", []turn{
		{"count", "I know 3 categories."},
		{"study", "Done."},
		{"goodbye", "See you later."},
		{"count", "I know 4 categories."},
		{"study harder", "Oops."},
	})

	if n := CountLogged(logs, zap.WarnLevel, "learn failed"); n != 1 {
		t.Fatalf("warnings %d", n)
	}
}

func TestPersistence(t *testing.T) {
	ctx := context.Background()
	s, err := bolt.NewStorage(filepath.Join(t.TempDir(), "sessions.db"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err = s.Open(ctx); err != nil {
		t.Fatal(err)
	}
	defer s.Close(ctx)

	cats := append([]category{
		{input: "WHAT DID YOU SAY", template: `<that/>`},
	}, greetings...)

	e1, _ := testEngine(t, nil, cats, WithStorage(s))
	converse(t, e1, "homer", []turn{
		{"my name is Homer", "Nice to meet you Homer."},
	})

	snap := e1.Snapshot("homer")
	if snap == nil || snap.Predicates.Get("name") != "Homer" || len(snap.History) != 1 {
		t.Fatal(JS(snap))
	}
	if e1.Snapshot("marge") != nil {
		t.Fatal("unexpected snapshot")
	}

	// A new engine with the same storage.
	e2, _ := testEngine(t, nil, cats, WithStorage(s))
	converse(t, e2, "homer", []turn{
		{"what is my name", "Your name is Homer."},
		{"what did you say", "Your name is Homer."},
	})
}

func TestBadConfig(t *testing.T) {
	conf := config.Default()
	conf.Timeout = 0
	_, err := New(conf)
	var bad *config.BadConfig
	if !errors.As(err, &bad) {
		t.Fatalf("got %v", err)
	}
}

func TestConcurrentSessions(t *testing.T) {
	cats := append([]category{
		{input: "SAY *", template: "<person/> <gender/>"},
	}, greetings...)
	e, _ := testEngine(t, nil, cats)

	var (
		start = make(chan struct{})
		done  = make(chan error)
		names = []string{"Ada", "Grace", "Barbara", "Frances", "Hedy", "Jean", "Karen", "Mary"}
	)
	for _, name := range names {
		go func(name string) {
			<-start
			ctx := context.Background()
			for i := 0; i < 20; i++ {
				reply, err := e.Chat(ctx, "say I am here with him", name)
				if err != nil {
					done <- err
					return
				}
				if !strings.HasPrefix(reply.Output, "you are here with him") {
					done <- errors.New(reply.Output)
					return
				}
				if _, err = e.Chat(ctx, "my name is "+name, name); err != nil {
					done <- err
					return
				}
				if reply, err = e.Chat(ctx, "what is my name", name); err != nil {
					done <- err
					return
				}
				if !strings.Contains(reply.Output, name) {
					done <- errors.New(reply.Output)
					return
				}
			}
			done <- nil
		}(name)
	}
	close(start)
	for range names {
		if err := <-done; err != nil {
			t.Fatal(err)
		}
	}
}
