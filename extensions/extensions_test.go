package extensions

import (
	"context"
	"testing"
	"time"

	"github.com/Comcast/chatter/core"
	. "github.com/Comcast/chatter/util/testutil"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func TestExtensions(t *testing.T) {
	logger, logs := ObservedLogger()
	e, err := core.New(nil, core.WithLogger(logger))
	if err != nil {
		t.Fatal(err)
	}

	x := New()
	x.Now = func() time.Time {
		return time.Date(2019, 3, 1, 13, 2, 3, 0, time.UTC)
	}
	if err := x.Register(e); err != nil {
		t.Fatal(err)
	}
	if err := x.Register(e); err == nil {
		t.Fatal("registered twice")
	}

	cats := map[string]string{
		"WHEN":   `<cronnext format="2006-01-02 15:04">0 9 * * *</cronnext>`,
		"BAD":    `[<cronnext>nope</cronnext>]`,
		"SYMBOL": `<gensym/>`,
	}
	for input, tmpl := range cats {
		if err := e.AddCategory(core.Path(input, "*", "*", "*"), tmpl, "test"); err != nil {
			t.Fatal(err)
		}
	}

	chat := func(input string) string {
		reply, err := e.Chat(context.Background(), input, "s1")
		if err != nil {
			t.Fatal(err)
		}
		return reply.Output
	}

	if got := chat("when"); got != "2019-03-02 09:00" {
		t.Fatalf("got %q", got)
	}
	if got := chat("bad"); got != "[]" {
		t.Fatalf("got %q", got)
	}
	if n := CountLogged(logs, zap.WarnLevel, "bad cron expression"); n != 1 {
		t.Fatalf("warnings %d", n)
	}
	if _, err := uuid.Parse(chat("symbol")); err != nil {
		t.Fatal(err)
	}
}
