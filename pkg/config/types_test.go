package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestTransportConfig_UnmarshalYAML(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want TransportConfig
	}{
		{
			name: "stdio transport",
			yaml: `
transport:
  type: stdio
  command: rag-search-server
  args: ["--port", "9000"]`,
			want: TransportConfig{
				Type:    TransportTypeStdio,
				Command: "rag-search-server",
				Args:    []string{"--port", "9000"},
			},
		},
		{
			name: "http transport",
			yaml: `
transport:
  type: http
  url: https://kb.internal/retrieve
  timeout: 30`,
			want: TransportConfig{
				Type:    TransportTypeHTTP,
				URL:     "https://kb.internal/retrieve",
				Timeout: 30,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var target struct {
				Transport TransportConfig `yaml:"transport"`
			}
			require.NoError(t, yaml.Unmarshal([]byte(tt.yaml), &target))
			assert.Equal(t, tt.want, target.Transport)
		})
	}
}

func TestMaskingConfig_UnmarshalYAML(t *testing.T) {
	input := `
data_masking:
  enabled: true
  pattern_groups: [security, cloud]
  custom_patterns:
    - pattern: "internal-[0-9]+"
      replacement: "[MASKED_INTERNAL_ID]"
      description: internal ticket ids`

	var target struct {
		DataMasking MaskingConfig `yaml:"data_masking"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(input), &target))

	assert.True(t, target.DataMasking.Enabled)
	assert.Equal(t, []string{"security", "cloud"}, target.DataMasking.PatternGroups)
	require.Len(t, target.DataMasking.CustomPatterns, 1)
	assert.Equal(t, "internal-[0-9]+", target.DataMasking.CustomPatterns[0].Pattern)
}

func TestSummarizationConfig_UnmarshalYAML(t *testing.T) {
	input := `
summarization:
  enabled: true
  size_threshold_tokens: 2000
  summary_max_token_limit: 500`

	var target struct {
		Summarization SummarizationConfig `yaml:"summarization"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(input), &target))

	assert.True(t, target.Summarization.Enabled)
	assert.Equal(t, 2000, target.Summarization.SizeThresholdTokens)
	assert.Equal(t, 500, target.Summarization.SummaryMaxTokenLimit)
}
