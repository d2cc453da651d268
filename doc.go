// Package chatter provides a rule-based conversational engine.
//
// Categories (pattern, that, topic, emotion, and a response template)
// are stored in a matcher trie in package 'match', and the engine in
// package 'core' evaluates templates against a per-session state.
// Command-line tools are in `cmd`.
package chatter
