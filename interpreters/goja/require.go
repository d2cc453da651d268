package goja

import (
	"context"
	"fmt"
	"strings"

	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/parser"
)

// InlineRequires generates new source code that replaces top-level
// require("name") statements with the code that the provider gives
// for those names.
//
// Inlining happens before compilation, so a script that requires a
// large library is still only compiled once.
func InlineRequires(ctx context.Context, src string, provider func(context.Context, string) (string, error)) (string, error) {
	p, err := parser.ParseFile(nil, "", src, 0)
	if err != nil {
		return "", err
	}

	type required struct {
		from, to int
		name     string
	}

	var requires []required

	for _, s := range p.Body {
		exps, is := s.(*ast.ExpressionStatement)
		if !is {
			continue
		}
		call, is := exps.Expression.(*ast.CallExpression)
		if !is {
			continue
		}
		id, is := call.Callee.(*ast.Identifier)
		if !is || id.Name != "require" {
			continue
		}
		if len(call.ArgumentList) != 1 {
			return "", fmt.Errorf("bad require args: %d", len(call.ArgumentList))
		}
		lit, is := call.ArgumentList[0].(*ast.StringLiteral)
		if !is {
			return "", fmt.Errorf("require needs a string literal")
		}

		// Idx0 and Idx1 are 1-based.
		requires = append(requires, required{
			from: int(exps.Idx0()) - 1,
			to:   int(exps.Idx1()) - 1,
			name: string(lit.Value),
		})
	}

	if len(requires) == 0 {
		return src, nil
	}

	var acc strings.Builder
	at := 0
	for _, r := range requires {
		lib, err := provider(ctx, r.name)
		if err != nil {
			return "", err
		}
		acc.WriteString(src[at:r.from])
		acc.WriteString(lib)
		acc.WriteString("\n")
		at = r.to
		if at < len(src) && src[at] == ';' {
			at++
		}
	}
	acc.WriteString(src[at:])

	return acc.String(), nil
}
