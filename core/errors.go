package core

// These errors are user errors, not internal errors.

import (
	"errors"
	"fmt"
)

// DuplicateTagName occurs when a custom tag is registered with a name
// that's already taken by a built-in or by an earlier registration.
type DuplicateTagName struct {
	Name string
}

func (e *DuplicateTagName) Error() string {
	return `tag "` + e.Name + `" already registered`
}

// MalformedIndex occurs when a star, thatstar, topicstar, that, or
// input index isn't a number or is out of range.
//
// A MalformedIndex is logged, and the tag renders as empty text.
type MalformedIndex struct {
	Tag   string
	Index string
}

func (e *MalformedIndex) Error() string {
	return fmt.Sprintf(`malformed index "%s" for tag "%s"`, e.Index, e.Tag)
}

// TooDeep occurs when srai sub-turns nest beyond the configured
// maximum depth.
type TooDeep struct {
	Depth int
	Input string
}

func (e *TooDeep) Error() string {
	return fmt.Sprintf(`srai depth %d exceeded at "%s"`, e.Depth, e.Input)
}

var (
	// NoConstructor occurs when a TagSpec without a New function
	// is registered.
	NoConstructor = errors.New("tag spec has no constructor")

	// InterpreterNotFound occurs when a script requires an
	// interpreter that isn't configured.
	InterpreterNotFound = errors.New("interpreter not found")

	// NoLearner occurs when categories are learned by an Engine
	// without a Learner.
	NoLearner = errors.New("no learner")
)
