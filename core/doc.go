/* Copyright 2018-2019 Comcast Cable Communications Management, LLC
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

// Package core provides the engine that turns user input into
// responses.
//
// An Engine holds a corpus of categories in a match.Graphmaster.
// Each category pairs a path pattern with a response template.  For
// each input sentence, the Engine builds a path from the normalized
// sentence, the previous response ("that"), the session's topic, and
// the session's current emotion.  The Graphmaster finds the best
// template for that path, and the Engine renders the template.
//
// Templates are markup.  Each element names a tag, and each tag has a
// handler.  Most handlers (EagerChildren) see their children already
// rendered to text.  A few (HandlerFirst) choose a subtree first and
// let the normal pipeline render only that subtree.  The "random"
// and "condition" tags work that way, so only the chosen branch has
// side effects.
//
// Applications can add tags with RegisterTag.
//
// Every top-level turn has an absolute deadline.  The deadline is
// checked throughout matching and rendering, including srai
// sub-turns, which share their parent's deadline.  A turn that runs
// out of time ends with empty output, and Chat substitutes the
// configured timeout message.
//
// Use Chat for a complete turn.  Chat serializes turns for each
// session, so an application can call Chat concurrently for different
// sessions.
package core
