package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	c := Default()
	if c.Server.Port != 3000 {
		t.Fatalf("unexpected default port %d", c.Server.Port)
	}
	if c.Model.Type != ModelForest || c.Audit.Backend != AuditNone {
		t.Fatalf("unexpected defaults: model=%s audit=%s", c.Model.Type, c.Audit.Backend)
	}
	if !c.RateLimit.Enabled || c.Model.Timeout != 3*time.Second {
		t.Fatalf("unexpected defaults: %+v", c.RateLimit)
	}
	if len(c.Server.CORSOrigins) != 1 || c.Server.CORSOrigins[0] != "*" {
		t.Fatalf("unexpected cors origins %v", c.Server.CORSOrigins)
	}
}

func TestLoadWithEnvOverlaysYAML(t *testing.T) {
	path := writeConfig(t, `
environment: production
server:
  port: 8081
model:
  type: logistic
  path: /models/logistic.json
  scaler_path: /models/scaler.json
ratelimit:
  enabled: false
`)
	t.Setenv("SCALER_PATH", "/override/scaler.json")

	c, err := LoadWithEnv(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Environment != "production" || c.Server.Port != 8081 {
		t.Fatalf("yaml values not applied: %+v", c.Server)
	}
	if c.Model.ScalerPath != "/override/scaler.json" {
		t.Fatalf("env override not applied: %s", c.Model.ScalerPath)
	}
	if c.RateLimit.Enabled {
		t.Fatalf("explicit false must survive defaults")
	}
	if c.Server.ReadTimeout != 10*time.Second {
		t.Fatalf("defaults lost for unset fields: %v", c.Server.ReadTimeout)
	}
}

func TestValidateCrossField(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{
			name: "model path",
			body: "model:\n  scaler_path: s.json\n",
			want: "model.path",
		},
		{
			name: "remote url",
			body: "model:\n  type: remote\n  scaler_path: s.json\n",
			want: "model.remote_url",
		},
		{
			name: "kafka brokers",
			body: "model:\n  path: m.json\n  scaler_path: s.json\naudit:\n  backend: kafka\n",
			want: "kafka.brokers",
		},
		{
			name: "bad model type",
			body: "model:\n  type: svm\n  path: m.json\n  scaler_path: s.json\n",
			want: "oneof",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadWithEnv(writeConfig(t, tc.body))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}
