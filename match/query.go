/* Copyright 2018 Comcast Cable Communications Management, LLC
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

package match

// State says which segment of a path is being traversed.
type State int

const (
	Input   State = iota // The user's input sentence.
	That                 // The previous output.
	Topic                // The current topic.
	Emotion              // The current emotion.
)

func (s State) String() string {
	switch s {
	case Input:
		return "input"
	case That:
		return "that"
	case Topic:
		return "topic"
	case Emotion:
		return "emotion"
	default:
		return "unknown"
	}
}

// Query is the match context for one sentence: the path searched, the
// template found, and the wildcard captures for each segment.
type Query struct {
	Path     string `json:"path"`
	Template string `json:"template,omitempty"`

	InputStar   []string `json:"inputStar,omitempty"`
	ThatStar    []string `json:"thatStar,omitempty"`
	TopicStar   []string `json:"topicStar,omitempty"`
	EmotionStar []string `json:"emotionStar,omitempty"`
}

// NewQuery makes a Query for the given path.
func NewQuery(path string) *Query {
	return &Query{
		Path: path,
	}
}

func (q *Query) add(s State, capture string) {
	switch s {
	case Input:
		q.InputStar = append(q.InputStar, capture)
	case That:
		q.ThatStar = append(q.ThatStar, capture)
	case Topic:
		q.TopicStar = append(q.TopicStar, capture)
	case Emotion:
		q.EmotionStar = append(q.EmotionStar, capture)
	}
}

// Stars returns the captures for the given segment.
func (q *Query) Stars(s State) []string {
	if q == nil {
		return nil
	}
	switch s {
	case Input:
		return q.InputStar
	case That:
		return q.ThatStar
	case Topic:
		return q.TopicStar
	case Emotion:
		return q.EmotionStar
	}
	return nil
}

// Copy makes a deep copy of the Query.
func (q *Query) Copy() *Query {
	dup := func(ss []string) []string {
		if ss == nil {
			return nil
		}
		acc := make([]string, len(ss))
		copy(acc, ss)
		return acc
	}
	return &Query{
		Path:        q.Path,
		Template:    q.Template,
		InputStar:   dup(q.InputStar),
		ThatStar:    dup(q.ThatStar),
		TopicStar:   dup(q.TopicStar),
		EmotionStar: dup(q.EmotionStar),
	}
}
