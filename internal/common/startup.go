package common

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	commonconfig "github.com/armadaproject/scalebench/internal/common/config"
	"github.com/armadaproject/scalebench/internal/common/logging"
)

// LoadConfig reads config.yaml from defaultPath, then merges every file in overrideConfigs on top of it in order.
// Environment variables prefixed with envPrefix override both, e.g. SCALEBENCH_ITERATIONS.
// envAliases maps config keys to additional, unprefixed environment variable names.
// The merged result is decoded into config, which must be a pointer.
func LoadConfig(
	config interface{},
	defaultPath string,
	overrideConfigs []string,
	envPrefix string,
	envAliases map[string]string,
) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(defaultPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.WithMessagef(err, "reading default config from %s", defaultPath)
	}
	log.Infof("Read base config from %s", v.ConfigFileUsed())

	for _, overrideConfig := range overrideConfigs {
		v.SetConfigFile(overrideConfig)
		if err := v.MergeInConfig(); err != nil {
			return nil, errors.WithMessagef(err, "merging config from %s", overrideConfig)
		}
		log.Infof("Read config from %s", v.ConfigFileUsed())
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	for key, envVar := range envAliases {
		if err := v.BindEnv(key, strings.ToUpper(envPrefix)+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), envVar); err != nil {
			return nil, errors.WithStack(err)
		}
	}

	if err := v.Unmarshal(config, commonconfig.CustomHooks...); err != nil {
		return nil, errors.WithStack(err)
	}
	return v, nil
}

func ConfigureLogging() {
	log.SetFormatter(&log.TextFormatter{ForceColors: true, FullTimestamp: true})
	log.SetOutput(os.Stdout)
}

func ConfigureCommandLineLogging() {
	log.SetFormatter(&logging.CommandLineFormatter{})
	log.SetOutput(os.Stdout)
}

// ServeMetrics exposes the metrics collected by gatherer on /metrics at the given port, and counts log lines by
// level in registerer. The returned function shuts the server down.
func ServeMetrics(port uint16, registerer prometheus.Registerer, gatherer prometheus.Gatherer) (shutdown func()) {
	log.AddHook(logging.NewPrometheusHook(registerer))

	srv := newMetricsServer(port, gatherer)
	go func() {
		log.Infof("Serving metrics on port %d", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.WithStacktrace(log.NewEntry(log.StandardLogger()), err).Error("metrics server failed")
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.WithError(err).Warn("failed to shut down metrics server")
		}
	}
}

func newMetricsServer(port uint16, gatherer prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
}
