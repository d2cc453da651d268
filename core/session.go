package core

import (
	"sync"

	"github.com/Comcast/chatter/mood"
	"github.com/Comcast/chatter/settings"
	"github.com/Comcast/chatter/storage"
)

// Session is the conversation state for one user.
//
// A Session's predicates and history are only changed by the turn
// that holds the Session's lock (see Engine.Chat).
type Session struct {
	Id string

	// Predicates are the session's variables ("get" and "set").
	Predicates *settings.Dictionary

	// History is the session's previous turns, most recent first.
	History []*Result

	Mood *mood.State

	historySize int

	sync.Mutex
}

// NewSession makes a Session with a copy of the given predicates.
func NewSession(id string, predicates *settings.Dictionary, historySize int) *Session {
	if historySize <= 0 {
		historySize = 1
	}
	return &Session{
		Id:          id,
		Predicates:  predicates.Copy(),
		Mood:        mood.NewState(),
		historySize: historySize,
	}
}

// remember adds the result to the front of the history.
func (s *Session) remember(r *Result) {
	h := make([]*Result, 0, s.historySize)
	h = append(h, r)
	for _, x := range s.History {
		if len(h) == s.historySize {
			break
		}
		h = append(h, x)
	}
	s.History = h
}

// Topic returns the "topic" predicate or "*".
func (s *Session) Topic() string {
	if t := s.Predicates.Get("topic"); t != "" {
		return t
	}
	return "*"
}

// That returns the previous turn's output or "".
func (s *Session) That() string {
	if len(s.History) == 0 {
		return ""
	}
	return s.History[0].Output()
}

func sentence(ss []string, m int) (string, bool) {
	if m < 1 || len(ss) < m {
		return "", false
	}
	return ss[m-1], true
}

// ThatSentence returns the mth output sentence of the nth previous
// turn.  Both are 1-based.
func (s *Session) ThatSentence(n, m int) (string, bool) {
	if n < 1 || len(s.History) < n {
		return "", false
	}
	return sentence(s.History[n-1].OutputSentences, m)
}

// InputSentence returns the mth input sentence of the nth previous
// turn.  Both are 1-based.
func (s *Session) InputSentence(n, m int) (string, bool) {
	if n < 1 || len(s.History) < n {
		return "", false
	}
	return sentence(s.History[n-1].InputSentences, m)
}

// state makes a storage presentation of the Session.  The caller
// should hold the Session's lock.
func (s *Session) state() *storage.SessionState {
	ss := &storage.SessionState{
		Id:         s.Id,
		Predicates: s.Predicates.Copy(),
		History:    make([]*storage.Turn, 0, len(s.History)),
		Emotion:    string(s.Mood.Current()),
	}
	scores := s.Mood.Scores()
	if 0 < len(scores) {
		ss.Mood = make(map[string]float64, len(scores))
		for label, score := range scores {
			ss.Mood[string(label)] = score
		}
	}
	for _, r := range s.History {
		t := &storage.Turn{
			Inputs:  r.InputSentences,
			Outputs: r.OutputSentences,
		}
		if r.Request != nil {
			t.At = r.Request.StartedOn
		}
		ss.History = append(ss.History, t)
	}
	return ss
}

// restore loads stored state into the Session.
func (s *Session) restore(ss *storage.SessionState) {
	if ss.Predicates != nil {
		s.Predicates.Merge(ss.Predicates)
	}
	s.History = s.History[:0]
	for _, t := range ss.History {
		if len(s.History) == s.historySize {
			break
		}
		s.History = append(s.History, &Result{
			Request:         &Request{StartedOn: t.At},
			InputSentences:  t.Inputs,
			OutputSentences: t.Outputs,
		})
	}
	scores := make(map[mood.Label]float64, len(ss.Mood))
	for label, score := range ss.Mood {
		scores[mood.Label(label)] = score
	}
	s.Mood.Set(mood.Label(ss.Emotion), scores)
}
