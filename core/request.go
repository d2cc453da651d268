package core

import (
	"context"
	"strings"
	"time"

	"github.com/Comcast/chatter/match"

	"go.uber.org/zap"
)

// Request is one turn: either a top-level turn from Chat or an srai
// sub-turn.
type Request struct {
	// Raw is the unprocessed input.
	Raw string

	// StartedOn is when the top-level turn started.  Sub-turns
	// inherit it, so they share the top-level turn's deadline.
	StartedOn time.Time

	Session *Session

	// Parent is the request that issued this srai sub-turn (if
	// any).
	Parent *Request

	// Depth is the number of srai redirections above this
	// request.
	Depth int

	ctx      context.Context
	timeout  time.Duration
	timedOut bool
	now      func() time.Time
	logger   *zap.Logger
}

// Deadline is StartedOn plus the engine's timeout.
func (r *Request) Deadline() time.Time {
	return r.StartedOn.Add(r.timeout)
}

// Context returns the Context of the top-level turn.
func (r *Request) Context() context.Context {
	if r.ctx == nil {
		return context.Background()
	}
	return r.ctx
}

// Root returns the top-level request.
func (r *Request) Root() *Request {
	for r.Parent != nil {
		r = r.Parent
	}
	return r
}

// TimedOut reports if the request has timed out.
func (r *Request) TimedOut() bool {
	return r.timedOut
}

// Expired reports if the deadline has passed.  A request is still
// live at exactly its deadline.
//
// The first time Expired sees the deadline pass, it marks the request
// and all of its ancestors as timed out.  The top-level turn logs a
// single warning however many sub-turns notice.
func (r *Request) Expired() bool {
	if r.timedOut {
		return true
	}
	now := time.Now
	if r.now != nil {
		now = r.now
	}
	if !now().After(r.Deadline()) {
		return false
	}
	first := !r.Root().timedOut
	for x := r; x != nil; x = x.Parent {
		x.timedOut = true
	}
	if first && r.logger != nil {
		root := r.Root()
		r.logger.Warn("request timed out",
			zap.String("input", root.Raw),
			zap.Duration("timeout", r.timeout),
			zap.Int("depth", r.Depth))
	}
	return true
}

// child makes an srai sub-turn.
func (r *Request) child(raw string) *Request {
	return &Request{
		Raw:       raw,
		StartedOn: r.StartedOn,
		Session:   r.Session,
		Parent:    r,
		Depth:     r.Depth + 1,
		ctx:       r.ctx,
		timeout:   r.timeout,
		timedOut:  r.timedOut,
		now:       r.now,
		logger:    r.logger,
	}
}

// Result is what a Request produced.
type Result struct {
	Request *Request

	// Paths are the complete match paths, one per input sentence.
	Paths []string

	InputSentences []string

	// Queries hold the template and captures for each path.
	Queries []*match.Query

	OutputSentences []string

	Duration time.Duration
}

// Output joins the non-empty output sentences with single spaces.
func (r *Result) Output() string {
	acc := make([]string, 0, len(r.OutputSentences))
	for _, s := range r.OutputSentences {
		if s = strings.TrimSpace(s); s != "" {
			acc = append(acc, s)
		}
	}
	return strings.Join(acc, " ")
}

// Reply is what Chat returns.
type Reply struct {
	Output    string         `json:"output"`
	Matches   []*match.Query `json:"matches,omitempty"`
	Duration  time.Duration  `json:"duration"`
	TimedOut  bool           `json:"timedOut,omitempty"`
	SessionId string         `json:"session"`
}
