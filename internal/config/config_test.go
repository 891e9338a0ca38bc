package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/marketplace/internal/ir"
)

func TestDefault(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "", cfg.Deployer)
	assert.Equal(t, "marketplace.db", cfg.Database)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "127.0.0.1:8545", cfg.HTTP.Addr)
	assert.Empty(t, cfg.HTTP.CORSOrigins)
}

func TestParse_Overrides(t *testing.T) {
	src := `
deployer: "0x00000000000000000000000000000000000000a1"
database: "/tmp/journal.db"
log: {
	level:  "debug"
	format: "json"
}
http: {
	addr: ":9000"
	cors_origins: ["https://shop.example"]
}
`
	cfg, err := Parse("market.cue", []byte(src))
	require.NoError(t, err)

	assert.Equal(t, "/tmp/journal.db", cfg.Database)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, ":9000", cfg.HTTP.Addr)
	assert.Equal(t, []string{"https://shop.example"}, cfg.HTTP.CORSOrigins)

	id, err := cfg.DeployerIdentity()
	require.NoError(t, err)
	assert.Equal(t, ir.MustParseIdentity("0x00000000000000000000000000000000000000a1"), id)
}

func TestParse_PartialKeepsDefaults(t *testing.T) {
	cfg, err := Parse("market.cue", []byte(`log: level: "warn"`))
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "marketplace.db", cfg.Database)
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unknown field", `bogus: 1`},
		{"bad level", `log: level: "loud"`},
		{"bad format", `log: format: "xml"`},
		{"bad deployer", `deployer: "0x1234"`},
		{"empty database", `database: ""`},
		{"addr without port", `http: addr: "localhost"`},
		{"bad origin", `http: cors_origins: ["shop.example"]`},
		{"syntax error", `log: {`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("bad.cue", []byte(tt.src))
			require.Error(t, err)

			var cerr *Error
			require.True(t, errors.As(err, &cerr), "got %T", err)
			assert.NotEmpty(t, cerr.Message)
		})
	}
}

func TestParse_ErrorCarriesPosition(t *testing.T) {
	_, err := Parse("bad.cue", []byte("database: \"x.db\"\nlog: level: \"loud\"\n"))
	require.Error(t, err)

	var cerr *Error
	require.True(t, errors.As(err, &cerr))
	if cerr.Pos.IsValid() {
		assert.True(t, strings.HasPrefix(err.Error(), "bad.cue:") || strings.HasPrefix(err.Error(), "schema.cue:"), err.Error())
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "market.cue")
	require.NoError(t, os.WriteFile(path, []byte(`database: "other.db"`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "other.db", cfg.Database)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.cue"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestDeployerIdentity_Missing(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)
	_, err = cfg.DeployerIdentity()
	assert.Error(t, err)
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := Config{Log: LogConfig{Level: "warn", Format: "json"}}
	logger := cfg.Logger(&buf)

	logger.Info("hidden")
	logger.Warn("shown", "seq", 3)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"seq":3`)
}

func TestLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	cfg := Config{Log: LogConfig{Level: "debug", Format: "text"}}
	cfg.Logger(&buf).Debug("committed", "kind", "NewStore")

	assert.Contains(t, buf.String(), "msg=committed")
	assert.Contains(t, buf.String(), "kind=NewStore")
}
