package bot

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

const minimalConfig = `
telegram:
  token: "123:abc"
llm:
  base_url: "http://localhost:8080/v1"
database:
  host: "localhost"
  user: "blu"
  password: "blu"
  name: "blu"
`

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Telegram.RunMode != "longpoll" {
		t.Errorf("run_mode = %q, want longpoll", cfg.Telegram.RunMode)
	}
	if cfg.Bot.TriggerKeyword != "بلو" {
		t.Errorf("trigger_keyword = %q", cfg.Bot.TriggerKeyword)
	}
	if cfg.Bot.DefaultTone != "دوستانه" {
		t.Errorf("default_tone = %q", cfg.Bot.DefaultTone)
	}
	if cfg.LLM.TimeoutSeconds != 120 {
		t.Errorf("llm timeout = %d, want 120", cfg.LLM.TimeoutSeconds)
	}
	if cfg.Database.Port != "5432" || cfg.Database.SSLMode != "disable" {
		t.Errorf("database defaults = %q/%q", cfg.Database.Port, cfg.Database.SSLMode)
	}
}

func TestLoadConfigRequiresDatabaseHost(t *testing.T) {
	body := `
telegram:
  token: "123:abc"
llm:
  base_url: "http://localhost:8080/v1"
`
	if _, err := LoadConfig(writeConfig(t, body)); err == nil {
		t.Fatal("expected error for missing database.host")
	}
}

func TestLoadConfigRequiresToken(t *testing.T) {
	body := `
llm:
  base_url: "http://localhost:8080/v1"
database:
  host: "localhost"
`
	if _, err := LoadConfig(writeConfig(t, body)); err == nil {
		t.Fatal("expected error for missing telegram token")
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("BOT_DEFAULT_TONE", "رسمی")
	cfg, err := LoadConfig(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Bot.DefaultTone != "رسمی" {
		t.Errorf("default_tone = %q, want env override", cfg.Bot.DefaultTone)
	}
}
