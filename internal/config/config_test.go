package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoanghonghuy/commitbot/internal/chat"
)

// isolate points HOME at an empty directory and clears the environment commitbot reads.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, k := range []string{
		"OPENAI_API_KEY", "COMMITBOT_API_KEY", "COMMITBOT_MODEL", "COMMITBOT_PROVIDER",
		"COMMITBOT_BASE_URL", "COMMITBOT_MAX_CONCURRENT_REQUESTS", "COMMITBOT_STREAM",
	} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
	return home
}

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("provider", "", "")
	fs.String("model", "", "")
	fs.String("base-url", "", "")
	fs.String("api-key", "", "")
	fs.Int("max-concurrent-requests", 0, "")
	fs.Bool("stream", true, "")
	fs.Bool("no-model", false, "")
	return fs
}

func writeConfig(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	t.Setenv("OPENAI_API_KEY", "sk-env")

	cfg, err := Load("", testFlags())
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, cfg.Provider)
	assert.Equal(t, DefaultModel, cfg.Model)
	assert.Equal(t, "sk-env", cfg.APIKey)
	assert.Equal(t, 4, cfg.MaxConcurrentRequests)
	assert.True(t, cfg.Stream)
	assert.Empty(t, cfg.IgnoredFiles)
}

func TestLoadPrecedence(t *testing.T) {
	home := isolate(t)
	writeConfig(t, filepath.Join(home, ".config", "commitbot.toml"), `
model = "from-file"
provider = "ollama"
max_concurrent_requests = 2
stream = false
ignored_files = ["*.lock"]
`)

	cfg, err := Load("", testFlags())
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Model)
	assert.Equal(t, ProviderOllama, cfg.Provider)
	assert.Equal(t, 2, cfg.MaxConcurrentRequests)
	assert.False(t, cfg.Stream)
	assert.Equal(t, []string{"*.lock"}, cfg.IgnoredFiles)

	t.Setenv("COMMITBOT_MODEL", "from-env")
	cfg, err = Load("", testFlags())
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Model)

	fs := testFlags()
	require.NoError(t, fs.Parse([]string{"--model", "from-flag", "--max-concurrent-requests", "7"}))
	cfg, err = Load("", fs)
	require.NoError(t, err)
	assert.Equal(t, "from-flag", cfg.Model)
	assert.Equal(t, 7, cfg.MaxConcurrentRequests)
}

func TestLoadExplicitPathMustExist(t *testing.T) {
	isolate(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"), nil)
	require.Error(t, err)
}

func TestLoadMissingKey(t *testing.T) {
	isolate(t)
	_, err := Load("", testFlags())
	require.Error(t, err)
	assert.True(t, errors.Is(err, chat.ErrConfig))
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestNoModelSkipsCredentialCheck(t *testing.T) {
	isolate(t)
	fs := testFlags()
	require.NoError(t, fs.Parse([]string{"--no-model"}))

	cfg, err := Load("", fs)
	require.NoError(t, err)
	assert.True(t, cfg.ModelDisabled())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"openai with key", Config{Provider: "openai", Model: "m", APIKey: "k"}, false},
		{"openai without key", Config{Provider: "openai", Model: "m"}, true},
		{"ollama without key", Config{Provider: "ollama", Model: "llama3"}, false},
		{"unknown provider", Config{Provider: "anthropic", Model: "m", APIKey: "k"}, true},
		{"negative concurrency", Config{Provider: "ollama", Model: "m", MaxConcurrentRequests: -1}, true},
		{"zero concurrency kept", Config{Provider: "ollama", Model: "m"}, false},
		{"none model", Config{Provider: "openai", Model: "None"}, false},
		{"empty model", Config{Provider: "ollama"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, chat.ErrConfig))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "nested", "commitbot.toml")

	written, err := Save(Config{
		Provider:              ProviderOllama,
		Model:                 "llama3",
		BaseURL:               "http://gpu-box:11434",
		MaxConcurrentRequests: 3,
		Stream:                false,
		IgnoredFiles:          []string{"*.snap"},
	}, path)
	require.NoError(t, err)
	assert.Equal(t, path, written)

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, ProviderOllama, cfg.Provider)
	assert.Equal(t, "llama3", cfg.Model)
	assert.Equal(t, "http://gpu-box:11434", cfg.BaseURL)
	assert.Equal(t, 3, cfg.MaxConcurrentRequests)
	assert.False(t, cfg.Stream)
	assert.Equal(t, []string{"*.snap"}, cfg.IgnoredFiles)
}

func TestReadSkipsValidation(t *testing.T) {
	isolate(t)
	cfg, err := Read("", nil)
	require.NoError(t, err)
	assert.Empty(t, cfg.APIKey)
	assert.Error(t, cfg.Validate())
}
