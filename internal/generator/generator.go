// Package generator implements the prompt_context_builder content
// generator: it gathers project files below a base path and renders them
// through a text template into one context document.
package generator

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"text/template"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/roach88/kspace/internal/compiler"
	"github.com/roach88/kspace/internal/ir"
)

// DefaultInclude selects every file when a config names no patterns.
var DefaultInclude = []string{"**/*"}

// DefaultMaxFileBytes caps how much of any single file is rendered.
const DefaultMaxFileBytes = 256 << 10

const defaultTemplate = `# Project context{{if .Name}}: {{.Name}}{{end}}

Base path: {{.BasePath}}
Files: {{len .Files}}
{{range .Files}}
## {{.Path}}

~~~
{{.Content}}
~~~
{{end}}`

// File is one selected source file.
type File struct {
	Path    string // slash-separated, relative to the base path
	Content string
}

// TemplateData is what templates render against.
type TemplateData struct {
	Name     string
	BasePath string
	Files    []File
	Config   map[string]any
}

// PromptContextBuilder renders project files into a context document.
type PromptContextBuilder struct {
	logger       *slog.Logger
	maxFileBytes int
}

// Option configures a PromptContextBuilder.
type Option func(*PromptContextBuilder)

// WithLogger sets the logger used for skipped files.
func WithLogger(l *slog.Logger) Option {
	return func(b *PromptContextBuilder) {
		b.logger = l
	}
}

// WithMaxFileBytes truncates files larger than n bytes.
func WithMaxFileBytes(n int) Option {
	return func(b *PromptContextBuilder) {
		b.maxFileBytes = n
	}
}

// New creates a PromptContextBuilder.
func New(opts ...Option) *PromptContextBuilder {
	b := &PromptContextBuilder{
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxFileBytes: DefaultMaxFileBytes,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Generate selects files under cfg.BasePath and renders them with
// cfg.Template, or the default template when none is set.
func (b *PromptContextBuilder) Generate(ctx context.Context, cfg *compiler.GeneratorConfig) (string, error) {
	if cfg == nil {
		return "", fmt.Errorf("generator config is nil")
	}

	info, err := os.Stat(cfg.BasePath)
	if err != nil {
		return "", fmt.Errorf("base path: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("base path %s is not a directory", cfg.BasePath)
	}

	fsys := os.DirFS(cfg.BasePath)
	paths, err := SelectFiles(fsys, cfg.Include, cfg.Exclude)
	if err != nil {
		return "", err
	}

	files := make([]File, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		content, err := b.readFile(fsys, p)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", p, err)
		}
		files = append(files, File{Path: p, Content: content})
	}

	text := cfg.Template
	if text == "" {
		text = defaultTemplate
	}
	tmpl, err := template.New("context").Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}

	config, _ := ir.ToGo(cfg.Values).(map[string]any)
	data := TemplateData{
		Name:     cfg.Name,
		BasePath: cfg.BasePath,
		Files:    files,
		Config:   config,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}

	b.logger.Debug("context generated", "base_path", cfg.BasePath, "files", len(files), "bytes", buf.Len())
	return buf.String(), nil
}

func (b *PromptContextBuilder) readFile(fsys fs.FS, name string) (string, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return "", err
	}
	if b.maxFileBytes > 0 && len(data) > b.maxFileBytes {
		b.logger.Debug("file truncated", "path", name, "size", len(data), "limit", b.maxFileBytes)
		data = truncateRunes(data, b.maxFileBytes)
	}
	return string(data), nil
}

// truncateRunes cuts data to at most n bytes without splitting a UTF-8
// sequence.
func truncateRunes(data []byte, n int) []byte {
	if len(data) <= n {
		return data
	}
	for n > 0 && !utf8.RuneStart(data[n]) {
		n--
	}
	return data[:n]
}

// SelectFiles returns the regular files in fsys matching any include
// pattern and no exclude pattern, sorted and without duplicates.
func SelectFiles(fsys fs.FS, include, exclude []string) ([]string, error) {
	if len(include) == 0 {
		include = DefaultInclude
	}
	for _, pattern := range exclude {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid exclude pattern %q", pattern)
		}
	}

	seen := make(map[string]struct{})
	var out []string
	for _, pattern := range include {
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("include pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			if _, dup := seen[m]; dup {
				continue
			}
			if excluded(m, exclude) {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}

	slices.Sort(out)
	return out, nil
}

func excluded(name string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, name); ok {
			return true
		}
	}
	return false
}
