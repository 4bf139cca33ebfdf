package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/roach88/kspace/internal/ir"
	"github.com/roach88/kspace/internal/queryir"
	"github.com/roach88/kspace/internal/space"
	"github.com/roach88/kspace/internal/store"
)

// DefaultArchiveName is the archived space used when --name is not given.
const DefaultArchiveName = "default"

// readRequest loads a DSL file (JSON, or YAML by extension) and returns the
// request object with any dslQuery envelope removed.
func readRequest(path string) (ir.IRObject, error) {
	doc, err := space.ReadDocument(path)
	if err != nil {
		return nil, err
	}
	obj, ok := doc.(ir.IRObject)
	if !ok {
		return nil, fmt.Errorf("%s must hold an object, got %s", path, ir.KindOf(doc))
	}
	return queryir.Unwrap(obj), nil
}

// requestFailure maps a readRequest or queryir.Decode error to an exit code
// and CLI error code.
func requestFailure(f *OutputFormatter, path string, err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("request file not found: %s", path), nil)
	}
	if code := queryir.DecodeErrorCode(err); code != "" {
		return f.Fail(ExitFailure, string(code), err.Error(), nil)
	}
	return f.Fail(ExitCommandError, ErrCodeLoadFailed, fmt.Sprintf("cannot read request %s", path), err)
}

// SpaceSource locates a space: a JSON/YAML file, or a named space in a
// SQLite archive.
type SpaceSource struct {
	File string
	DB   string
	Name string
}

// Check reports flag combinations that name no space or two spaces.
func (s SpaceSource) Check() error {
	switch {
	case s.File != "" && s.DB != "":
		return fmt.Errorf("--space and --db are mutually exclusive")
	case s.File == "" && s.DB == "":
		return fmt.Errorf("a space is required: set --space (or %s) or --db (or %s)", EnvSpace, EnvDB)
	}
	return nil
}

func (s SpaceSource) name() string {
	if s.Name == "" {
		return DefaultArchiveName
	}
	return s.Name
}

// String describes the source for messages.
func (s SpaceSource) String() string {
	if s.File != "" {
		return s.File
	}
	return fmt.Sprintf("%s#%s", s.DB, s.name())
}

// Load reads the space.
func (s SpaceSource) Load(ctx context.Context) (*space.Space, error) {
	if s.File != "" {
		return space.Load(s.File)
	}
	st, err := store.Open(s.DB)
	if err != nil {
		return nil, err
	}
	defer st.Close()
	return st.LoadSpace(ctx, s.name())
}

// Save writes the space back where it was loaded from.
func (s SpaceSource) Save(ctx context.Context, sp *space.Space, now time.Time) error {
	if s.File != "" {
		return space.Save(s.File, sp)
	}
	st, err := store.Open(s.DB)
	if err != nil {
		return err
	}
	defer st.Close()
	return st.SaveSpace(ctx, s.name(), sp, now)
}
