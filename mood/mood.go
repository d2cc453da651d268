// Package mood estimates a session's emotion from what the user says.
//
// The engine uses the current emotion as the <EMOTION> segment of
// each match path, so categories can respond differently to an
// upset user.  Estimation is keyword-based: each input adds points to
// the labels whose keywords it contains, and older points decay.
//
// All state is per session (see State).  There are no package-level
// counters.
package mood

import (
	"strings"
	"sync"
)

// Label is an emotion as it appears in a match path.
type Label string

const (
	Neutral Label = "NEUTRAL"
	Happy   Label = "HAPPY"
	Sad     Label = "SAD"
	Angry   Label = "ANGRY"
	Excited Label = "EXCITED"
	Afraid  Label = "AFRAID"
)

// Labels lists the non-neutral labels in tie-breaking order.
var Labels = []Label{Angry, Sad, Afraid, Excited, Happy}

// DefaultKeywords are English keywords for each label.
var DefaultKeywords = map[Label][]string{
	Happy: {
		"happy", "glad", "great", "good", "thanks", "thank you", "love",
		"awesome", "nice", "lol", "haha", "wonderful", "pleased",
	},
	Sad: {
		"sad", "unhappy", "cry", "crying", "depressed", "lonely", "upset",
		"hurt", "sorry", "miss", "tired", "disappointed",
	},
	Angry: {
		"angry", "mad", "furious", "annoyed", "hate", "stupid", "rage",
		"shut up", "fed up", "sick of",
	},
	Excited: {
		"wow", "amazing", "can't wait", "cannot wait", "excited",
		"incredible", "unbelievable", "cool",
	},
	Afraid: {
		"afraid", "scared", "worried", "nervous", "anxious", "frightened",
		"terrified",
	},
}

// Analyzer scores text.
type Analyzer struct {
	// Keywords are matched as case-insensitive substrings.
	Keywords map[Label][]string

	// Decay multiplies a State's existing scores before a new
	// observation is added.  Zero means nothing carries over.
	Decay float64

	// Threshold is the score a label needs to become current.
	Threshold float64
}

// NewAnalyzer makes an Analyzer with DefaultKeywords.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		Keywords:  DefaultKeywords,
		Decay:     0.5,
		Threshold: 2,
	}
}

// Score returns the points that the text earns for each label.
func (a *Analyzer) Score(text string) map[Label]float64 {
	scores := make(map[Label]float64, len(a.Keywords))
	s := " " + strings.ToLower(strings.TrimSpace(text)) + " "
	if s == "  " {
		return scores
	}
	for label, words := range a.Keywords {
		for _, w := range words {
			if w == "" {
				continue
			}
			if strings.Contains(s, strings.ToLower(w)) {
				scores[label] += 3
			}
		}
	}
	if n := strings.Count(text, "!"); 0 < n {
		scores[Excited] += float64(n)
	}
	return scores
}

// State is one session's mood.
type State struct {
	sync.Mutex

	scores  map[Label]float64
	current Label
}

// NewState makes a neutral State.
func NewState() *State {
	return &State{
		scores:  make(map[Label]float64, len(Labels)),
		current: Neutral,
	}
}

// Observe decays the State, adds the text's scores, and returns the
// resulting current label.
func (s *State) Observe(a *Analyzer, text string) Label {
	s.Lock()
	defer s.Unlock()

	for label, score := range s.scores {
		s.scores[label] = score * a.Decay
	}
	for label, score := range a.Score(text) {
		s.scores[label] += score
	}

	best, bestScore := Neutral, a.Threshold
	for _, label := range Labels {
		if score := s.scores[label]; bestScore <= score && (best == Neutral || bestScore < score) {
			best, bestScore = label, score
		}
	}
	s.current = best
	return best
}

// Current returns the current label.
func (s *State) Current() Label {
	s.Lock()
	defer s.Unlock()
	return s.current
}

// Scores returns a copy of the accumulated scores.
func (s *State) Scores() map[Label]float64 {
	s.Lock()
	defer s.Unlock()
	acc := make(map[Label]float64, len(s.scores))
	for k, v := range s.scores {
		acc[k] = v
	}
	return acc
}

// Set replaces the State's scores and current label.  Used to restore
// a persisted session.
func (s *State) Set(current Label, scores map[Label]float64) {
	s.Lock()
	defer s.Unlock()
	if current == "" {
		current = Neutral
	}
	s.current = current
	s.scores = make(map[Label]float64, len(scores))
	for k, v := range scores {
		s.scores[k] = v
	}
}
