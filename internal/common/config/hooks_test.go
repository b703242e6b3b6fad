package config

import (
	"testing"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type durations struct {
	Pulse     time.Duration
	Jitter    time.Duration
	SaveEvery time.Duration
	Probes    []string
}

func decode(t *testing.T, input map[string]interface{}) durations {
	var out durations
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			SecondsDecodeHook(),
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		Result: &out,
	})
	require.NoError(t, err)
	require.NoError(t, decoder.Decode(input))
	return out
}

func TestSecondsDecodeHook(t *testing.T) {
	out := decode(t, map[string]interface{}{
		"pulse":     0.5,
		"jitter":    2,
		"saveEvery": "1m30s",
	})
	assert.Equal(t, 500*time.Millisecond, out.Pulse)
	assert.Equal(t, 2*time.Second, out.Jitter)
	assert.Equal(t, 90*time.Second, out.SaveEvery)
}

func TestSecondsDecodeHook_IgnoresOtherTypes(t *testing.T) {
	out := decode(t, map[string]interface{}{
		"probes": "a,b",
	})
	assert.Equal(t, []string{"a", "b"}, out.Probes)
}

func TestStripPrefix(t *testing.T) {
	assert.Equal(t, "Rancher.Url", stripPrefix("ScaleBenchConfiguration.Rancher.Url"))
	assert.Equal(t, "Iterations", stripPrefix("Iterations"))
}
