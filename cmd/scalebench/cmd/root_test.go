package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armadaproject/scalebench/internal/scalebench"
	"github.com/armadaproject/scalebench/internal/scalebench/configuration"
)

const defaultConfig = `
iterations: 1000
pulse: 1s
jitter: 500ms
saveEvery: 5m
output:
  path: scale_test.csv
rancher:
  url: https://localhost
  token: ""
kubernetes:
  clusterId: local
`

func writeFile(t *testing.T, dir, name, contents string) string {
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestRootCmd_Subcommands(t *testing.T) {
	var names []string
	for _, c := range RootCmd().Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"run", "version", "config"})
}

func TestInitParams_LayersConfigFlags(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", defaultConfig)
	first := writeFile(t, dir, "first.yaml", "iterations: 10\nrancher:\n  token: first\n")
	second := writeFile(t, dir, "second.yaml", "iterations: 20\n")

	a := scalebench.New()
	cmd := configCmd(a)
	addConfigFlags(cmd.Flags())
	require.NoError(t, cmd.Flags().Set(defaultConfigFlag, dir))
	require.NoError(t, cmd.Flags().Set(configFlag, first))
	require.NoError(t, cmd.Flags().Set(configFlag, second))

	require.NoError(t, initParams(cmd, a))

	assert.Equal(t, 20, a.Config.Iterations)
	assert.Equal(t, "first", a.Config.Rancher.Token)
	assert.NotNil(t, a.Viper)
}

func TestInitParams_FallsBackToHomeConfig(t *testing.T) {
	homedir.DisableCache = true
	t.Cleanup(func() { homedir.DisableCache = false })
	home := t.TempDir()
	t.Setenv("HOME", home)
	writeFile(t, home, userConfigName, "rancher:\n  token: from-home\n")
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", defaultConfig)

	a := scalebench.New()
	cmd := runCmd(a)
	addConfigFlags(cmd.Flags())
	require.NoError(t, cmd.Flags().Set(defaultConfigFlag, dir))

	require.NoError(t, initParams(cmd, a))

	assert.Equal(t, "from-home", a.Config.Rancher.Token)
}

func TestInitParams_InvalidConfig(t *testing.T) {
	homedir.DisableCache = true
	t.Cleanup(func() { homedir.DisableCache = false })
	t.Setenv("HOME", t.TempDir())
	t.Setenv(configuration.RancherTokenEnvVar, "")
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", defaultConfig)

	a := scalebench.New()
	cmd := configCmd(a)
	addConfigFlags(cmd.Flags())
	require.NoError(t, cmd.Flags().Set(defaultConfigFlag, dir))

	assert.Error(t, initParams(cmd, a))
}
