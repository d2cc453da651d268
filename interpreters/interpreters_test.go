package interpreters

import (
	"context"
	"testing"

	"github.com/Comcast/chatter/config"
	"github.com/Comcast/chatter/core"
	. "github.com/Comcast/chatter/util/testutil"
)

func TestStandard(t *testing.T) {
	logger, _ := ObservedLogger()
	is := Standard(logger)
	for _, lang := range []string{"javascript", "ecmascript", "goja"} {
		if _, have := is[lang]; !have {
			t.Fatalf("no %s", lang)
		}
	}

	e, err := core.New(config.Default(), core.WithLogger(logger), core.WithInterpreters(is))
	if err != nil {
		t.Fatal(err)
	}
	path := core.Path("ADD * AND *", "*", "*", "*")
	tmpl := `<script>set("sum", String(Number(star[1]) + Number(star[0]))); get("sum")</script> <javascript>"is " + _.predicates.sum</javascript>`
	if err := e.AddCategory(path, tmpl, "test"); err != nil {
		t.Fatal(err)
	}

	reply, err := e.Chat(context.Background(), "add 2 and 3", "s1")
	if err != nil {
		t.Fatal(err)
	}
	if reply.Output != "5 is 5" {
		t.Fatalf("got %q", reply.Output)
	}
}
