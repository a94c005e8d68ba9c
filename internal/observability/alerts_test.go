package observability

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type ruleFile struct {
	Groups []struct {
		Name  string `yaml:"name"`
		Rules []struct {
			Alert       string            `yaml:"alert"`
			Expr        string            `yaml:"expr"`
			For         string            `yaml:"for"`
			Labels      map[string]string `yaml:"labels"`
			Annotations map[string]string `yaml:"annotations"`
		} `yaml:"rules"`
	} `yaml:"groups"`
}

func TestAlertRulesReferenceExportedMetrics(t *testing.T) {
	raw, err := os.ReadFile(filepath.Join("..", "..", "deploy", "prometheus", "alerts", "headoffice.yml"))
	require.NoError(t, err)

	var file ruleFile
	require.NoError(t, yaml.Unmarshal(raw, &file))
	require.Len(t, file.Groups, 1)
	group := file.Groups[0]
	require.Equal(t, "headoffice", group.Name)

	severities := map[string]string{
		"HighErrorRate":    "critical",
		"HighLatency":      "warning",
		"UpstreamDegraded": "warning",
		"WarmupFailing":    "warning",
	}
	anchors := map[string]string{
		"HighErrorRate":    "high-error-rate",
		"HighLatency":      "high-latency",
		"UpstreamDegraded": "upstream-degraded",
		"WarmupFailing":    "warmup-failing",
	}
	require.Len(t, group.Rules, len(severities))

	for _, rule := range group.Rules {
		t.Run(rule.Alert, func(t *testing.T) {
			severity, known := severities[rule.Alert]
			require.True(t, known, "unexpected alert")
			assert.Equal(t, severity, rule.Labels["severity"])
			assert.Equal(t, "docs/runbook-ops.md#"+anchors[rule.Alert], rule.Annotations["runbook"])
			assert.NotEmpty(t, rule.Annotations["summary"])
			assert.NotEmpty(t, rule.Annotations["description"])
			assert.Contains(t, rule.Expr, "headoffice_")
			assert.NotEmpty(t, rule.For)
		})
	}
}
