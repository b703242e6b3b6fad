package configuration

import "time"

const (
	// Config keys that can also be supplied through the unprefixed environment variables
	// read by the existing Rancher scaling scripts.
	RancherTokenKey = "rancher.token"
	RancherUrlKey   = "rancher.url"

	RancherTokenEnvVar = "RANCHER_SCALING_TOKEN"
	RancherUrlEnvVar   = "RANCHER_SCALING_URL"

	EnvPrefix = "SCALEBENCH"
)

// EnvAliases returns the config keys that may be set through the legacy environment variables.
func EnvAliases() map[string]string {
	return map[string]string{
		RancherTokenKey: RancherTokenEnvVar,
		RancherUrlKey:   RancherUrlEnvVar,
	}
}

type ScaleBenchConfiguration struct {
	// Total number of scheduling rounds
	Iterations int `validate:"gt=0"`
	// Base delay between iterations
	Pulse time.Duration `validate:"gte=0"`
	// Maximum additional random delay, drawn uniformly from [0, jitter) every iteration
	Jitter time.Duration `validate:"gte=0"`
	// Minimum elapsed time between checkpoint flushes
	SaveEvery time.Duration `validate:"gt=0"`
	// Maximum number of probes executing at once. 0 means unbounded.
	Workers int `validate:"gte=0"`
	// How long a checkpoint waits for in-flight probes. 0 means wait forever.
	DrainTimeout time.Duration `validate:"gte=0"`
	// Names of the probes to run. Empty means all known probes.
	Probes     []string
	Output     OutputConfig
	Rancher    RancherConfig
	Kubernetes KubernetesConfig
	Metrics    MetricsConfig
}

type OutputConfig struct {
	// CSV file results are appended to
	Path string `validate:"required"`
}

type RancherConfig struct {
	Url                string `validate:"required,url"`
	Token              string `validate:"required"`
	InsecureSkipVerify bool
	// Timeout applied to every request made by the Rancher probes
	Timeout time.Duration `validate:"gte=0"`
}

type KubernetesConfig struct {
	// Downstream cluster whose Kubernetes API is reached through the Rancher proxy
	ClusterId string `validate:"required"`
	QPS       float32
	Burst     int
}

type MetricsConfig struct {
	// Port the Prometheus endpoint listens on. 0 disables it.
	Port uint16
}
