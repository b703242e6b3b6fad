package scalebench

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	exprand "golang.org/x/exp/rand"
	"gopkg.in/yaml.v2"
	"k8s.io/utils/clock"

	"github.com/armadaproject/scalebench/internal/common"
	"github.com/armadaproject/scalebench/internal/common/util"
	"github.com/armadaproject/scalebench/internal/scalebench/build"
	"github.com/armadaproject/scalebench/internal/scalebench/configuration"
	"github.com/armadaproject/scalebench/internal/scalebench/metrics"
	"github.com/armadaproject/scalebench/internal/scalebench/probes"
	"github.com/armadaproject/scalebench/internal/scalebench/rancher"
	"github.com/armadaproject/scalebench/internal/scalebench/scheduler"
	"github.com/armadaproject/scalebench/internal/scalebench/sink"
)

type App struct {
	// Configuration the benchmark runs with.
	Config configuration.ScaleBenchConfiguration
	// Viper instance Config was loaded from. Used to print the effective configuration.
	Viper *viper.Viper
	// Out is used to write the output. Defaults to standard out,
	// but can be overridden in tests to make assertions on the application's output.
	Out io.Writer
	// Source of randomness used to seed the jitter generator.
	Random io.Reader
	// Time source for pacing and checkpointing.
	Clock clock.Clock
	// Benchmark metrics are registered with Registerer and served from Gatherer.
	// Both should refer to the same registry.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
	// NewClients builds the clients the probes call. Tests replace it with fakes.
	NewClients func(config configuration.ScaleBenchConfiguration) (probes.Clients, error)
}

// New instantiates an App with default parameters, including standard output,
// cryptographically secure random source and the real clock.
// Config and Viper are filled in once the configuration has been loaded.
func New() *App {
	return &App{
		Out:        os.Stdout,
		Random:     rand.Reader,
		Clock:      clock.RealClock{},
		Registerer: prometheus.DefaultRegisterer,
		Gatherer:   prometheus.DefaultGatherer,
		NewClients: NewClients,
	}
}

// Version prints build information (e.g., current git commit) to the app output.
func (a *App) Version() error {
	w := tabwriter.NewWriter(a.Out, 1, 1, 1, ' ', 0)
	defer w.Flush()
	fmt.Fprintf(w, "Version:\t%s\n", build.ReleaseVersion)
	fmt.Fprintf(w, "Commit:\t%s\n", build.GitCommit)
	fmt.Fprintf(w, "Go version:\t%s\n", build.GoVersion)
	fmt.Fprintf(w, "Built:\t%s\n", build.BuildTime)
	return nil
}

// PrintConfig writes the effective configuration as YAML, with the Rancher token redacted.
func (a *App) PrintConfig() error {
	settings := map[string]interface{}{}
	if a.Viper != nil {
		settings = a.Viper.AllSettings()
	}
	if rancherSettings, ok := settings["rancher"].(map[string]interface{}); ok {
		if token, ok := rancherSettings["token"].(string); ok && token != "" {
			rancherSettings["token"] = a.Config.Redacted().Rancher.Token
		}
	}
	out, err := yaml.Marshal(settings)
	if err != nil {
		return errors.WithStack(err)
	}
	_, err = a.Out.Write(out)
	return errors.WithStack(err)
}

// Run executes the benchmark until all iterations are done or ctx is cancelled,
// then prints a summary of the run.
func (a *App) Run(ctx context.Context) error {
	runId := util.NewULID()
	logger := log.WithField("run", runId)
	logger.Infof("Starting benchmark with config %+v", a.Config.Redacted())

	clients, err := a.NewClients(a.Config)
	if err != nil {
		return err
	}
	metricsToRun, err := probes.Select(a.Config.Probes, clients)
	if err != nil {
		return err
	}

	if a.Config.Metrics.Port != 0 {
		shutdown := common.ServeMetrics(a.Config.Metrics.Port, a.Registerer, a.Gatherer)
		defer shutdown()
	}

	random, err := a.newRand()
	if err != nil {
		return err
	}
	s, err := scheduler.New(
		scheduler.Config{
			Iterations:   a.Config.Iterations,
			Pulse:        a.Config.Pulse,
			Jitter:       a.Config.Jitter,
			SaveEvery:    a.Config.SaveEvery,
			Workers:      a.Config.Workers,
			DrainTimeout: a.Config.DrainTimeout,
		},
		metricsToRun,
		sink.NewCSVSink(a.Config.Output.Path),
		a.Clock,
		random,
		metrics.New(a.Registerer),
	)
	if err != nil {
		return err
	}

	summary, err := s.Run(ctx)
	a.printSummary(runId, summary)
	if err != nil {
		return err
	}
	logger.Infof("Results written to %s", a.Config.Output.Path)
	return nil
}

func (a *App) printSummary(runId string, summary scheduler.Summary) {
	w := tabwriter.NewWriter(a.Out, 1, 1, 1, ' ', 0)
	defer w.Flush()
	fmt.Fprintf(w, "Run:\t%s\n", runId)
	fmt.Fprintf(w, "Iterations:\t%d/%d\n", summary.Iterations, a.Config.Iterations)
	fmt.Fprintf(w, "Flushes:\t%d\n", summary.Flushes)
	fmt.Fprintf(w, "Output:\t%s\n", a.Config.Output.Path)
	if summary.Stopped {
		fmt.Fprintf(w, "Stopped early:\t%t\n", summary.Stopped)
	}
}

func (a *App) newRand() (*exprand.Rand, error) {
	var seed [8]byte
	if _, err := io.ReadFull(a.Random, seed[:]); err != nil {
		return nil, errors.WithMessage(err, "seeding jitter generator")
	}
	return exprand.New(exprand.NewSource(binary.LittleEndian.Uint64(seed[:]))), nil
}

// NewClients builds a Rancher API client and Kubernetes clients that reach the configured cluster
// through the Rancher proxy.
func NewClients(config configuration.ScaleBenchConfiguration) (probes.Clients, error) {
	rancherClient, err := rancher.New(rancher.Options{
		URL:                config.Rancher.Url,
		Token:              config.Rancher.Token,
		InsecureSkipVerify: config.Rancher.InsecureSkipVerify,
		Timeout:            config.Rancher.Timeout,
	})
	if err != nil {
		return probes.Clients{}, err
	}
	kubernetesClients, err := probes.NewKubernetesClients(probes.RestConfig(config.Rancher, config.Kubernetes))
	if err != nil {
		return probes.Clients{}, err
	}
	return probes.Clients{Rancher: rancherClient, Kubernetes: kubernetesClients}, nil
}
