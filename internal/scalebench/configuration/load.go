package configuration

import (
	"github.com/spf13/viper"

	"github.com/armadaproject/scalebench/internal/common"
	commonconfig "github.com/armadaproject/scalebench/internal/common/config"
)

const DefaultConfigPath = "./config/scalebench"

// Load reads the default configuration from defaultPath, layers userConfigs and environment overrides
// on top of it and validates the result.
func Load(defaultPath string, userConfigs []string) (ScaleBenchConfiguration, *viper.Viper, error) {
	var config ScaleBenchConfiguration
	v, err := common.LoadConfig(&config, defaultPath, userConfigs, EnvPrefix, EnvAliases())
	if err != nil {
		return config, nil, err
	}
	if err := commonconfig.Validate(config); err != nil {
		return config, v, err
	}
	return config, v, nil
}

// Redacted returns a copy of the configuration that is safe to print.
func (c ScaleBenchConfiguration) Redacted() ScaleBenchConfiguration {
	if c.Rancher.Token != "" {
		c.Rancher.Token = "<redacted>"
	}
	c.Probes = append([]string(nil), c.Probes...)
	return c
}
