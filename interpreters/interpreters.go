// Package interpreters assembles the script interpreters that an
// Engine can use for script and javascript tags.
package interpreters

import (
	"github.com/Comcast/chatter/core"
	"github.com/Comcast/chatter/interpreters/goja"

	"go.uber.org/zap"
)

// Standard returns the standard interpreters, which all use Goja.
func Standard(logger *zap.Logger) core.Interpreters {
	i := goja.NewInterpreter()
	if logger != nil {
		i.Logger = logger
	}
	return core.Interpreters{
		"javascript": i,
		"ecmascript": i,
		"goja":       i,
	}
}
