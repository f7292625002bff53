package main

import (
	"bytes"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/host"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	t.Chdir(t.TempDir())
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "arbor version "+arbor.Version+"\n", out)
}

func TestValidateAndTree(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	def := filepath.Join(dir, "hello.yaml")
	require.NoError(t, os.WriteFile(def, []byte("title: Hello\nnodes:\n  - field: name\n  - action: Wave\n"), 0o644))

	out, err := execute(t, "validate", def)
	require.NoError(t, err)
	assert.Contains(t, out, "Definitions are valid!")

	out, err = execute(t, "tree", "--def", def, "--format", "mermaid")
	require.NoError(t, err)
	assert.Contains(t, out, "wave_1[[")
}

func TestFlagsOverrideConfig(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile("arbor.yaml", []byte("log_level: warn\nstore:\n  backend: file\n  dir: sessions\n"), 0o644))

	out, err := execute(t, "session", "ls", "--log-level", "error")
	require.NoError(t, err)
	assert.Equal(t, "No active sessions found.\n", out)
	assert.Equal(t, "error", cfg.LogLevel)
	assert.Equal(t, "file", cfg.Store.Backend)
}

func TestServeAttach(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	def := filepath.Join(dir, "hello.yaml")
	require.NoError(t, os.WriteFile(def, []byte("title: Hello\nnodes:\n  - field: name\n"), 0o644))
	t.Cleanup(func() { _ = serveCmd.Flags().Set("attach", "") })

	reg := host.NewRegistry(host.WithAttach(func(string) []arbor.Option { return nil }))
	ts := httptest.NewServer(reg.Handler())
	out, err := execute(t, "serve", "--def", def, "--attach", ts.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "Attached \"Hello\" at "+ts.URL+"/apps/hello/")
	assert.Equal(t, []string{"hello"}, reg.Names())

	ts.Close()
	_, err = execute(t, "serve", "--def", def, "--attach", ts.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
	assert.Contains(t, err.Error(), "service unavailable")
}
