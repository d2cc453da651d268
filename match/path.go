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

import "strings"

// OrStar collapses whitespace in a path segment.  An empty segment
// becomes "*".
func OrStar(segment string) string {
	segment = strings.Join(strings.Fields(segment), " ")
	if segment == "" {
		return Star
	}
	return segment
}

// CompletePath returns the path with all four segments, in order.
// Missing or empty segments are "*".
//
// "MY NAME IS *" becomes "MY NAME IS * <THAT> * <TOPIC> * <EMOTION> *".
func CompletePath(path string) string {
	var (
		segments = make(map[string][]string, 4)
		current  string
	)
	for _, token := range strings.Fields(path) {
		switch Normalize(token) {
		case ThatToken, TopicToken, EmotionToken:
			current = Normalize(token)
			continue
		}
		segments[current] = append(segments[current], token)
	}

	segment := func(marker string) string {
		return OrStar(strings.Join(segments[marker], " "))
	}

	return strings.Join([]string{
		segment(""),
		ThatToken, segment(ThatToken),
		TopicToken, segment(TopicToken),
		EmotionToken, segment(EmotionToken),
	}, " ")
}
