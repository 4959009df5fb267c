// Package config loads deployment configuration written in CUE.
//
// A config file is unified with an embedded schema that supplies defaults
// and constraints, so an empty file is a valid configuration.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

//go:embed schema.cue
var schemaSource []byte

// Config is a decoded deployment configuration.
type Config struct {
	Database      string  `json:"database"`
	AddressPrefix string  `json:"address_prefix"`
	Factory       Factory `json:"factory"`
	API           API     `json:"api"`
}

// Factory configures the factory contract.
type Factory struct {
	Label        string `json:"label"`
	Admin        string `json:"admin,omitempty"`
	RequireAuth  bool   `json:"require_auth"`
	ChildProgram string `json:"child_program"`
}

// API configures the HTTP query surface.
type API struct {
	Addr string `json:"addr"`
}

// Error is a configuration error with the CUE position it was found at.
type Error struct {
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return e.Message
}

// Default returns the configuration an empty file produces.
func Default() Config {
	cfg, err := Parse("default.cue", nil)
	if err != nil {
		panic(fmt.Sprintf("config schema: %v", err))
	}
	return cfg
}

// LoadFile reads and parses the config file at path.
func LoadFile(path string) (Config, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(path, src)
}

// Parse unifies src with the schema and decodes the result.
// filename is used in error positions only.
func Parse(filename string, src []byte) (Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileBytes(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, formatCUEError(err)
	}

	user := ctx.CompileBytes(src, cue.Filename(filename))
	if err := user.Err(); err != nil {
		return Config{}, newError(err, user, filename)
	}

	v := schema.LookupPath(cue.ParsePath("#Config")).Unify(user)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Config{}, newError(err, user, filename)
	}

	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return Config{}, newError(err, user, filename)
	}
	return cfg, nil
}

// formatCUEError reports every error CUE found, positioned at the first
// error that has a position.
func formatCUEError(err error) *Error {
	e := &Error{Message: strings.TrimSpace(errors.Details(err, nil))}
	for _, ce := range errors.Errors(err) {
		if positions := errors.Positions(ce); len(positions) > 0 {
			e.Pos = positions[0]
			break
		}
	}
	return e
}

// newError is formatCUEError for errors in the user's file. It prefers a
// position inside filename and falls back to where the user set the field
// the first error is about, since an empty disjunction has no position.
func newError(err error, user cue.Value, filename string) *Error {
	e := formatCUEError(err)
	errs := errors.Errors(err)
	for _, ce := range errs {
		for _, pos := range errors.Positions(ce) {
			if pos.Filename() == filename {
				e.Pos = pos
				return e
			}
		}
	}
	if len(errs) == 0 {
		return e
	}

	var sels []cue.Selector
	for _, label := range errs[0].Path() {
		if strings.HasPrefix(label, "#") {
			continue
		}
		sels = append(sels, cue.Str(label))
	}
	if len(sels) > 0 {
		if pos := user.LookupPath(cue.MakePath(sels...)).Pos(); pos.IsValid() {
			e.Pos = pos
		}
	}
	return e
}
