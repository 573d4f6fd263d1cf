package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validYAML = `
port: "8080"
databaseURL: "postgres://localhost/marketmind"
minioEndpoint: "localhost:9000"
minioBucket: "artifacts"
ollamaURL: "http://localhost:11434"
ollamaModel: "llama3"
imageAPIURL: "http://localhost:7860"
ttsURL: "http://localhost:5002"
videoURL: "http://localhost:8188"
workflowTemplatePath: "workflows/i2v.json"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HistoryLimit != 10 {
		t.Errorf("historyLimit = %d, want 10", cfg.HistoryLimit)
	}
	if cfg.ChatTimeoutSeconds != 90 {
		t.Errorf("chatTimeoutSeconds = %d, want 90", cfg.ChatTimeoutSeconds)
	}
	if cfg.RefineTimeoutSeconds != 60 {
		t.Errorf("refineTimeoutSeconds = %d, want 60", cfg.RefineTimeoutSeconds)
	}
	if cfg.WorkflowImageNode != "image_input" || cfg.WorkflowOutputNode != "output" {
		t.Errorf("workflow nodes = %q/%q", cfg.WorkflowImageNode, cfg.WorkflowOutputNode)
	}
	if cfg.RateLimitPerMinute != 30 {
		t.Errorf("rateLimitPerMinute = %d, want 30", cfg.RateLimitPerMinute)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://db-host/prod")
	t.Setenv("OLLAMA_MODEL", "llama3:70b")
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DatabaseURL != "postgres://db-host/prod" {
		t.Errorf("databaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.OllamaModel != "llama3:70b" {
		t.Errorf("ollamaModel = %q", cfg.OllamaModel)
	}
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name    string
		drop    string
		wantMsg string
	}{
		{"missing port", `port: "8080"`, "port"},
		{"missing database", `databaseURL: "postgres://localhost/marketmind"`, "databaseURL"},
		{"missing ollama model", `ollamaModel: "llama3"`, "ollamaModel"},
		{"missing tts", `ttsURL: "http://localhost:5002"`, "ttsURL"},
		{"missing video", `videoURL: "http://localhost:8188"`, "videoURL"},
		{"missing workflow template", `workflowTemplatePath: "workflows/i2v.json"`, "workflowTemplatePath"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for _, key := range []string{"DATABASE_URL", "OLLAMA_MODEL", "TTS_API_URL", "VIDEO_ENGINE_URL"} {
				t.Setenv(key, "")
			}
			trimmed := strings.Replace(validYAML, tc.drop+"\n", "", 1)
			_, err := Load(writeConfig(t, trimmed))
			if err == nil || !strings.Contains(err.Error(), tc.wantMsg) {
				t.Fatalf("err = %v, want mention of %s", err, tc.wantMsg)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected an error for a missing config file")
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "port: [broken")); err == nil {
		t.Fatalf("expected a parse error")
	}
}
