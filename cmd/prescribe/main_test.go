package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clinqo-prescriber/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, baseURL, apiKey string) string {
	t.Helper()
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("INFERENCE_API_KEY", "")
	t.Setenv("OPENROUTER_MODEL", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := fmt.Sprintf(`
inference:
  base_url: %q
  api_key: %q
  model: "test/model"
  timeout: 2000
logging:
  level: "error"
`, baseURL, apiKey)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestSymptomsCommand(t *testing.T) {
	out, err := run(t, "", "symptoms", "I have a headache and fever")
	require.NoError(t, err)

	var tags []string
	require.NoError(t, json.Unmarshal([]byte(out), &tags))
	assert.Equal(t, []string{"Headache", "Fever"}, tags)
}

func TestPromptCommand(t *testing.T) {
	out, err := run(t, "", "prompt", "persistent cough")
	require.NoError(t, err)
	assert.Contains(t, out, `"persistent cough"`)
	assert.Contains(t, out, "Cough")
	assert.Contains(t, out, "Return the JSON response only.")
}

func TestGenerateCommand_FallbackFromStdin(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	path := writeConfig(t, server.URL, "sk-test")
	out, err := run(t, "I feel dizzy\n", "generate", "--config", path)
	require.NoError(t, err)

	var result models.PrescriptionResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, models.StatusFallback, result.Status)
	assert.Equal(t, models.ModelFallback, result.ModelUsed)
	assert.Equal(t, "Dizziness", result.Prescription.Symptoms[0].Name)
}

func TestGenerateCommand_MissingKey(t *testing.T) {
	path := writeConfig(t, "http://127.0.0.1:1", "")
	_, err := run(t, "", "generate", "--config", path, "--transcript", "headache")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CONFIGURATION_INVALID")
}
