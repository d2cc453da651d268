// Package goja runs template scripts with Goja, which is a Go
// implementation of ECMAScript 5.1+.
//
// See https://github.com/dop251/goja.
package goja

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/google/uuid"
	"github.com/gorhill/cronexpr"
	"go.uber.org/zap"
)

var (
	// InterruptedMessage is the string value of Interrupted.
	InterruptedMessage = "RuntimeError: timeout"

	// Interrupted is returned by Exec if the execution is
	// interrupted.
	Interrupted = errors.New(InterruptedMessage)
)

// LibraryProvider resolves a library name to source code.
type LibraryProvider func(ctx context.Context, name string) (string, error)

// Interpreter runs script tags.
//
// Compiled programs are cached by source, so a script that's in a
// template is only compiled once.
type Interpreter struct {

	// Testing exposes sleep(ms).
	Testing bool

	// LibraryProvider resolves top-level require("name") calls.
	// When nil, DefaultLibraryProvider is used.
	LibraryProvider LibraryProvider

	// Logger receives output from the script function "log".
	Logger *zap.Logger

	programs sync.Map
}

// NewInterpreter makes a new Interpreter.
func NewInterpreter() *Interpreter {
	return &Interpreter{
		Logger: zap.NewNop(),
	}
}

// DefaultLibraryProvider reads "file://" libraries relative to the
// working directory.
var DefaultLibraryProvider = MakeFileLibraryProvider(".")

// MakeFileLibraryProvider makes a LibraryProvider that supports names
// that are URLs with protocols of "file", "http", and "https".  There
// currently is no additional control when using HTTP/HTTPS.
func MakeFileLibraryProvider(dir string) LibraryProvider {
	return func(ctx context.Context, name string) (string, error) {
		parts := strings.SplitN(name, "://", 2)
		if 2 != len(parts) {
			return "", fmt.Errorf("bad library link '%s'", name)
		}
		switch parts[0] {
		case "file":
			bs, err := ioutil.ReadFile(filepath.Join(dir, filepath.Clean("/"+parts[1])))
			if err != nil {
				return "", err
			}
			return string(bs), nil
		case "http", "https":
			req, err := http.NewRequest("GET", name, nil)
			if err != nil {
				return "", err
			}
			resp, err := http.DefaultClient.Do(req.WithContext(ctx))
			if err != nil {
				return "", err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return "", fmt.Errorf("library fetch status %s", resp.Status)
			}
			bs, err := ioutil.ReadAll(resp.Body)
			if err != nil {
				return "", err
			}
			return string(bs), nil
		default:
			return "", fmt.Errorf("unknown protocol '%s'", parts[0])
		}
	}
}

// MakeMapLibraryProvider makes a LibraryProvider backed by a map.
func MakeMapLibraryProvider(srcs map[string]string) LibraryProvider {
	return func(ctx context.Context, name string) (string, error) {
		src, have := srcs[name]
		if !have {
			return "", fmt.Errorf("undefined library '%s'", name)
		}
		return src, nil
	}
}

func (i *Interpreter) provide(ctx context.Context, name string) (string, error) {
	if i.LibraryProvider != nil {
		return i.LibraryProvider(ctx, name)
	}
	return DefaultLibraryProvider(ctx, name)
}

// Compile inlines required libraries and compiles the result.
//
// This method can block if the LibraryProvider blocks in order to
// obtain external libraries.
func (i *Interpreter) Compile(ctx context.Context, code string) (*goja.Program, error) {
	if x, have := i.programs.Load(code); have {
		return x.(*goja.Program), nil
	}

	src, err := InlineRequires(ctx, code, i.provide)
	if err != nil {
		return nil, err
	}

	p, err := goja.Compile("", src, false)
	if err != nil {
		return nil, err
	}
	i.programs.Store(code, p)
	return p, nil
}

func protest(o *goja.Runtime, x interface{}) {
	panic(o.ToValue(x))
}

func export(x interface{}) interface{} {
	if v, is := x.(goja.Value); is {
		return v.Export()
	}
	return x
}

// Exec runs the code and returns the string form of its completion
// value.
//
// Each entry in env is a global, and env is also available at "_".
// These utilities are also available at "_":
//
//	gensym(): generate a random string.
//	esc(s): URL query-escape the given string.
//	cronNext(expr): the next time (RFC3339) for a cron expression.
//	log(x): log x (as JSON) at info level.
//
// The code is interrupted when ctx is done.  An undefined or null
// result is the empty string.  A result that's not a primitive is
// rendered as JSON.
func (i *Interpreter) Exec(ctx context.Context, code string, env map[string]interface{}) (string, error) {
	p, err := i.Compile(ctx, code)
	if err != nil {
		return "", err
	}

	o := goja.New()

	underscore := make(map[string]interface{}, len(env)+4)
	for k, v := range env {
		underscore[k] = v
		o.Set(k, v)
	}

	if i.Testing {
		o.Set("sleep", func(ms int) {
			time.Sleep(time.Duration(ms) * time.Millisecond)
		})
	}

	underscore["gensym"] = func() interface{} {
		return uuid.New().String()
	}

	underscore["cronNext"] = func(x interface{}) interface{} {
		expr, is := export(x).(string)
		if !is {
			protest(o, "not a string")
		}
		c, err := cronexpr.Parse(expr)
		if err != nil {
			protest(o, err.Error())
		}
		return c.Next(time.Now()).UTC().Format(time.RFC3339Nano)
	}

	underscore["esc"] = func(x interface{}) interface{} {
		s, is := export(x).(string)
		if !is {
			protest(o, "not a string")
		}
		return url.QueryEscape(s)
	}

	logger := i.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	underscore["log"] = func(x interface{}) interface{} {
		x = export(x)
		js, err := json.Marshal(&x)
		if err != nil {
			logger.Warn("script log", zap.Error(err))
		} else {
			logger.Info("script log", zap.String("value", string(js)))
		}
		return x
	}

	o.Set("_", underscore)

	// Make sure that the following goroutine is terminated as
	// soon as possible.
	ictx, cancel := context.WithCancel(ctx)
	go func() {
		<-ictx.Done()
		// If Exec calls cancel() after RunProgram returns, the
		// interrupt is harmless: nothing is running.
		o.Interrupt(InterruptedMessage)
	}()

	v, err := o.RunProgram(p)
	cancel()

	if err != nil {
		if _, is := err.(*goja.InterruptedError); is {
			return "", Interrupted
		}
		return "", err
	}

	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return "", nil
	}

	switch vv := v.Export().(type) {
	case string:
		return vv, nil
	case int64, float64, bool:
		return v.String(), nil
	default:
		js, err := json.Marshal(vv)
		if err != nil {
			return "", err
		}
		return string(js), nil
	}
}
