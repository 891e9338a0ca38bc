package config

import (
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/marketplace/internal/ir"
)

//go:embed schema.cue
var schemaCUE string

// Config is the decoded marketplace configuration.
type Config struct {
	Deployer string     `json:"deployer,omitempty"`
	Database string     `json:"database"`
	Log      LogConfig  `json:"log"`
	HTTP     HTTPConfig `json:"http"`
}

// LogConfig selects the slog level and handler.
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// HTTPConfig configures the serve command.
type HTTPConfig struct {
	Addr        string   `json:"addr"`
	CORSOrigins []string `json:"cors_origins"`
}

// Error is a config validation failure with its source position.
type Error struct {
	Path    string
	Message string
	Pos     token.Pos
	Detail  string // full multi-error report from cue/errors.Details
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Default returns the schema defaults.
func Default() (Config, error) {
	return Parse("<default>", []byte("{}"))
}

// Load reads and validates the CUE file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(path, data)
}

// Parse validates CUE source as if it had been read from path.
func Parse(path string, src []byte) (Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, fmt.Errorf("compile config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	file := ctx.CompileBytes(src, cue.Filename(path))
	if err := file.Err(); err != nil {
		return Config{}, newError(path, err)
	}

	v := def.Unify(file)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Config{}, newError(path, err)
	}

	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return Config{}, newError(path, err)
	}
	return cfg, nil
}

// newError keeps the first CUE error's position and the full report.
func newError(path string, err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &Error{Path: path, Message: err.Error()}
	}

	first := errs[0]
	cerr := &Error{
		Path:    path,
		Message: first.Error(),
		Detail:  errors.Details(err, nil),
	}
	if positions := errors.Positions(first); len(positions) > 0 {
		cerr.Pos = positions[0]
	}
	return cerr
}

// DeployerIdentity parses the configured deployer.
func (c Config) DeployerIdentity() (ir.Identity, error) {
	if c.Deployer == "" {
		return ir.Identity{}, fmt.Errorf("no deployer configured")
	}
	return ir.ParseIdentity(c.Deployer)
}

// Logger builds the structured logger described by c.Log, writing to w.
func (c Config) Logger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(c.Log.Level)}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
