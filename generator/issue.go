package generator

import (
	"errors"
	"fmt"
	"go/ast"
	"go/token"
	"path/filepath"
)

// ErrUnsupported marks declarations typeidgen cannot generate an identity
// for.
var ErrUnsupported = errors.New("unsupported declaration")

// Issue is a problem found at a source position.
type Issue struct {
	Pos     token.Position
	Message string
	Err     error
}

func (i *Issue) Error() string {
	path := i.Pos.Filename
	if path == "" {
		path = "unknown"
	} else if rel, err := filepath.Rel(".", path); err == nil && !filepath.IsAbs(rel) {
		path = rel
	}

	msg := i.Message
	if i.Err != nil {
		msg = i.Err.Error() + ": " + msg
	}

	return fmt.Sprintf("%s:%d:%d: %s", path, i.Pos.Line, i.Pos.Column, msg)
}

func (i *Issue) Unwrap() error {
	return i.Err
}

func newIssue(fset *token.FileSet, node ast.Node, fallbackPath string, err error, msg string) *Issue {
	var pos token.Position
	if fset != nil && node != nil {
		pos = fset.Position(node.Pos())
	}

	if pos.Filename == "" {
		pos.Filename = fallbackPath
	}

	if pos.Line == 0 {
		pos.Line = 1
	}

	if pos.Column == 0 {
		pos.Column = 1
	}

	return &Issue{Pos: pos, Message: msg, Err: err}
}

func unsupported(fset *token.FileSet, node ast.Node, path, format string, args ...any) *Issue {
	return newIssue(fset, node, path, ErrUnsupported, fmt.Sprintf(format, args...))
}
