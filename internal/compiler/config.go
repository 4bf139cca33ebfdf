package compiler

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/kspace/internal/ir"
)

// generatorSchema constrains generator configuration files. Only
// project.base_path is required; unknown fields pass through to the
// generator untouched.
const generatorSchema = `
#GeneratorConfig: {
	project: {
		base_path: string & !=""
		name?:     string
		include?: [...string]
		exclude?: [...string]
		...
	}
	template?: string
	...
}
`

// GeneratorConfig is a loaded and validated generator configuration.
type GeneratorConfig struct {
	// Path is the absolute path of the configuration file.
	Path string

	// BasePath is project.base_path resolved against the config file's directory.
	BasePath string

	// Name is project.name, if set.
	Name string

	// Include and Exclude are doublestar patterns relative to BasePath.
	Include []string
	Exclude []string

	// Template is an inline template overriding the generator default.
	Template string

	// Values is the full configuration with project.base_path absolutized.
	Values ir.IRObject
}

// LoadGeneratorConfig reads a JSON or CUE configuration file, validates it
// against the generator schema and resolves project.base_path relative to
// the file's own directory.
func LoadGeneratorConfig(path string) (*GeneratorConfig, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path %s: %w", path, err)
	}
	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return CompileGeneratorConfig(data, absPath)
}

// CompileGeneratorConfig validates config source that was read from
// filename. filename anchors relative base paths and error positions.
func CompileGeneratorConfig(src []byte, filename string) (*GeneratorConfig, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(generatorSchema, cue.Filename("generator.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("generator schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#GeneratorConfig"))

	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	unified := def.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	data, err := unified.MarshalJSON()
	if err != nil {
		return nil, formatCUEError(err)
	}
	raw, err := ir.UnmarshalIRValue(data)
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	values, ok := raw.(ir.IRObject)
	if !ok {
		return nil, &CompileError{Field: "config", Message: "configuration must be an object", Pos: v.Pos()}
	}

	cfg := &GeneratorConfig{Path: filename, Values: values}

	project, _ := values["project"].(ir.IRObject)
	base, _ := project["base_path"].(ir.IRString)
	cfg.BasePath = resolveBasePath(filename, string(base))

	project = project.Clone()
	project["base_path"] = ir.IRString(cfg.BasePath)
	values["project"] = project

	if name, ok := project["name"].(ir.IRString); ok {
		cfg.Name = string(name)
	}
	cfg.Include = stringList(project["include"])
	cfg.Exclude = stringList(project["exclude"])
	if tmpl, ok := values["template"].(ir.IRString); ok {
		cfg.Template = string(tmpl)
	}

	return cfg, nil
}

func resolveBasePath(configPath, base string) string {
	if filepath.IsAbs(base) {
		return filepath.Clean(base)
	}
	return filepath.Join(filepath.Dir(configPath), base)
}

func stringList(v ir.IRValue) []string {
	arr, ok := v.(ir.IRArray)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, elem := range arr {
		if s, ok := elem.(ir.IRString); ok {
			out = append(out, string(s))
		}
	}
	return out
}

// CompileError represents a configuration error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	field := "cue"
	if path := first.Path(); len(path) > 0 {
		field = path[len(path)-1]
	}
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   field,
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return &CompileError{Field: field, Message: first.Error()}
}
