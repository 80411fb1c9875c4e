package main

import (
	"encoding/json"
	"testing"

	"mercator-hq/tollgate/pkg/cli"
)

const testConfig = `
limiters:
  openai:
    requests_per_minute: 60
  anthropic:
    requests_per_minute: 50
    max_retries: 0
storage:
  backend: memory
`

const testPricing = `
providers:
  acme:
    models:
      small:
        input_per_million: 1.0
        output_per_million: 2.0
`

func TestValidateCommand(t *testing.T) {
	cfgPath := writeFile(t, "tollgate.yaml", testConfig)

	out, err := executeCommand(t, "validate", "--config", cfgPath, "-o", "json")
	if err != nil {
		t.Fatalf("validate error = %v", err)
	}

	var got validateResult
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(got.Limiters) != 2 || got.Limiters[0] != "anthropic" || got.Limiters[1] != "openai" {
		t.Errorf("limiters = %v", got.Limiters)
	}
	if got.PricingSource != "(built-in)" || got.Models == 0 {
		t.Errorf("pricing = %q with %d models", got.PricingSource, got.Models)
	}
}

func TestValidateCommand_PricingFile(t *testing.T) {
	pricingPath := writeFile(t, "pricing.yaml", testPricing)

	out, err := executeCommand(t, "validate", "--pricing", pricingPath, "-o", "json")
	if err != nil {
		t.Fatalf("validate error = %v", err)
	}

	var got validateResult
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if got.Providers != 1 || got.Models != 1 {
		t.Errorf("providers/models = %d/%d, want 1/1", got.Providers, got.Models)
	}
}

func TestValidateCommand_Errors(t *testing.T) {
	tests := []struct {
		name   string
		config string
		file   string
	}{
		{
			name:   "non-positive rate",
			config: "limiters:\n  openai:\n    requests_per_minute: 0\n",
		},
		{
			name:   "unknown key",
			config: "limiterz: {}\n",
		},
		{
			name:   "bad cron",
			config: "snapshots:\n  schedule: \"every minute\"\n",
		},
		{
			name: "invalid pricing file",
			file: "providers:\n  acme:\n    models:\n      small:\n        input_per_million: -1\n        output_per_million: 2\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := []string{"validate"}
			if tt.config != "" {
				args = append(args, "--config", writeFile(t, "tollgate.yaml", tt.config))
			}
			if tt.file != "" {
				args = append(args, "--pricing", writeFile(t, "pricing.yaml", tt.file))
			}

			_, err := executeCommand(t, args...)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if cli.ExitCode(err) != cli.ExitConfig {
				t.Errorf("exit code = %d, want %d (err: %v)", cli.ExitCode(err), cli.ExitConfig, err)
			}
		})
	}
}
