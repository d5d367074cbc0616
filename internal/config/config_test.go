// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("workspace", "", "")
	fs.String("brain-dir", "brain", "")
	fs.String("cache-dir", "", "")
	fs.Bool("no-kev", false, "")
	fs.Bool("no-nvd", false, "")
	fs.String("log-level", "warn", "")
	return fs
}

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_DATA_HOME", "")
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("WBRAIN_GITHUB_TOKEN", "")
	return home
}

func TestLoad_Defaults(t *testing.T) {
	home := isolate(t)
	ws := t.TempDir()

	v := New()
	fs := flagSet()
	require.NoError(t, BindFlags(v, fs))
	require.NoError(t, fs.Parse([]string{"--workspace", ws}))

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, ws, cfg.Workspace)
	assert.Equal(t, "brain", cfg.BrainDir)
	assert.Equal(t, filepath.Join(home, ".local", "share", "wbrain"), cfg.CacheDir)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.False(t, cfg.NoKEV)
	assert.Empty(t, cfg.GitHubToken)
}

func TestLoad_Precedence(t *testing.T) {
	isolate(t)
	ws := t.TempDir()
	xdg := t.TempDir()
	t.Setenv("XDG_DATA_HOME", xdg)
	t.Setenv("WBRAIN_NO_NVD", "true")
	t.Setenv("GITHUB_TOKEN", "ghp_env")
	require.NoError(t, os.WriteFile(filepath.Join(ws, ".wbrain.yaml"), []byte("brain_dir: shared-brain\nno_kev: true\nlog_level: info\n"), 0o644))

	v := New()
	fs := flagSet()
	require.NoError(t, BindFlags(v, fs))
	require.NoError(t, fs.Parse([]string{"--workspace", ws, "--log-level", "debug"}))

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "shared-brain", cfg.BrainDir, "file overrides flag default")
	assert.True(t, cfg.NoKEV)
	assert.True(t, cfg.NoNVD, "env var applies")
	assert.Equal(t, "debug", cfg.LogLevel, "explicit flag wins over file")
	assert.Equal(t, "ghp_env", cfg.GitHubToken)
	assert.Equal(t, filepath.Join(xdg, "wbrain"), cfg.CacheDir)
}

func TestLoad_PrefixedTokenWins(t *testing.T) {
	isolate(t)
	t.Setenv("GITHUB_TOKEN", "generic")
	t.Setenv("WBRAIN_GITHUB_TOKEN", "specific")

	v := New()
	v.Set(KeyWorkspace, t.TempDir())
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "specific", cfg.GitHubToken)
}

func TestLoad_BadConfigFile(t *testing.T) {
	isolate(t)
	ws := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(ws, ".wbrain.yaml"), []byte("brain_dir: [oops"), 0o644))

	v := New()
	v.Set(KeyWorkspace, ws)
	_, err := Load(v)
	assert.ErrorContains(t, err, "reading config file")
}

func TestPaths(t *testing.T) {
	cfg := &Config{Workspace: "/ws", BrainDir: "brain"}

	assert.Equal(t, "/ws/brain/MANIFEST.yaml", cfg.ManifestPath())
	assert.Equal(t, "/ws/brain/relationships.yaml", cfg.RelationshipsPath())
	assert.Equal(t, "/ws/brain/LOGS", cfg.LogsPath())
	assert.Equal(t, "/ws/brain/SECURITY", cfg.SecurityPath())
	assert.Equal(t, "/ws/brain/SECURITY/ALERTS.yaml", cfg.AlertsPath())
	assert.Equal(t, "/ws/brain/SECURITY/RISK_ASSESSMENT.yaml", cfg.AssessmentsPath())
	assert.Equal(t, "/ws/brain/CONTEXT", cfg.ContextPath())
	assert.Equal(t, "/ws/brain/CONTEXT/SECURITY.md", cfg.SecurityContextPath())

	abs := &Config{Workspace: "/ws", BrainDir: "/elsewhere/brain"}
	assert.Equal(t, "/elsewhere/brain/MANIFEST.yaml", abs.ManifestPath())
}
