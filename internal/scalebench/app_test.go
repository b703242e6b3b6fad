package scalebench

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/utils/clock"

	"github.com/armadaproject/scalebench/internal/scalebench/configuration"
	"github.com/armadaproject/scalebench/internal/scalebench/probes"
)

func newRancherServer(t *testing.T) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": []map[string]string{{"id": "local", "name": "local"}}})
	}))
	t.Cleanup(server.Close)
	return server
}

func testApp(t *testing.T, config configuration.ScaleBenchConfiguration) (*App, *bytes.Buffer, *prometheus.Registry) {
	var out bytes.Buffer
	registry := prometheus.NewRegistry()
	app := New()
	app.Config = config
	app.Out = &out
	app.Random = bytes.NewReader([]byte{1, 2, 3, 4, 5, 6, 7, 8})
	app.Clock = clock.RealClock{}
	app.Registerer = registry
	app.Gatherer = registry
	return app, &out, registry
}

func testConfig(t *testing.T, url string) configuration.ScaleBenchConfiguration {
	return configuration.ScaleBenchConfiguration{
		Iterations: 3,
		SaveEvery:  time.Hour,
		Probes:     []string{probes.RancherClusterList, probes.RancherProjectList},
		Output:     configuration.OutputConfig{Path: filepath.Join(t.TempDir(), "scale_test.csv")},
		Rancher: configuration.RancherConfig{
			Url:     url,
			Token:   "test-token",
			Timeout: 5 * time.Second,
		},
		Kubernetes: configuration.KubernetesConfig{ClusterId: "local"},
	}
}

func readCSV(t *testing.T, path string) [][]string {
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestRun_WritesResults(t *testing.T) {
	server := newRancherServer(t)
	config := testConfig(t, server.URL)
	app, out, registry := testApp(t, config)

	require.NoError(t, app.Run(context.Background()))

	records := readCSV(t, config.Output.Path)
	require.Len(t, records, 4)
	assert.Equal(t, []string{"", probes.RancherClusterListTime, probes.RancherProjectListTime}, records[0])
	for i, record := range records[1:] {
		assert.Equal(t, strconv.Itoa(i), record[0])
		for _, cell := range record[1:] {
			seconds, err := strconv.ParseFloat(cell, 64)
			require.NoError(t, err, "cell %q is not a latency", cell)
			assert.GreaterOrEqual(t, seconds, 0.0)
		}
	}

	assert.Contains(t, out.String(), "Iterations: 3/3")
	assert.Contains(t, out.String(), "Flushes:    1")
	assert.Equal(t, 3.0, counterValue(t, registry, "scalebench_iterations_total"))
}

func TestRun_AppendsAcrossRuns(t *testing.T) {
	server := newRancherServer(t)
	config := testConfig(t, server.URL)

	for i := 0; i < 2; i++ {
		app, _, _ := testApp(t, config)
		require.NoError(t, app.Run(context.Background()))
	}

	// Each run writes a header with its first flush.
	records := readCSV(t, config.Output.Path)
	require.Len(t, records, 8)
	header := []string{"", probes.RancherClusterListTime, probes.RancherProjectListTime}
	assert.Equal(t, header, records[0])
	assert.Equal(t, header, records[4])
	assert.Equal(t, []string{"0", "1", "2", "0", "1", "2"}, []string{
		records[1][0], records[2][0], records[3][0], records[5][0], records[6][0], records[7][0],
	})
}

func TestRun_ProbeFailuresLeaveEmptyCells(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rancher is down", http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)
	config := testConfig(t, server.URL)
	app, _, _ := testApp(t, config)

	require.NoError(t, app.Run(context.Background()))

	assert.Equal(t, [][]string{
		{"", probes.RancherClusterListTime, probes.RancherProjectListTime},
		{"0", "", ""},
		{"1", "", ""},
		{"2", "", ""},
	}, readCSV(t, config.Output.Path))
}

func TestRun_UnknownProbe(t *testing.T) {
	config := testConfig(t, "https://rancher.example.com")
	config.Probes = []string{"does_not_exist"}
	app, _, _ := testApp(t, config)

	assert.Error(t, app.Run(context.Background()))
	_, err := os.Stat(config.Output.Path)
	assert.True(t, os.IsNotExist(err))
}

func TestVersion(t *testing.T) {
	app, out, _ := testApp(t, configuration.ScaleBenchConfiguration{})

	require.NoError(t, app.Version())

	assert.Contains(t, out.String(), "Version:")
	assert.Contains(t, out.String(), "Commit:")
}

func TestPrintConfig_RedactsToken(t *testing.T) {
	t.Setenv(configuration.RancherTokenEnvVar, "super-secret")
	config, v, err := configuration.Load("../../config/scalebench", nil)
	require.NoError(t, err)
	var out bytes.Buffer
	app := New()
	app.Config = config
	app.Viper = v
	app.Out = &out

	require.NoError(t, app.PrintConfig())

	assert.NotContains(t, out.String(), "super-secret")
	assert.Contains(t, out.String(), "<redacted>")
	assert.Contains(t, out.String(), "iterations: 1000")
}

func counterValue(t *testing.T, registry *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := registry.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() == name {
			require.Len(t, family.GetMetric(), 1)
			return family.GetMetric()[0].GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s not registered", name)
	return 0
}
