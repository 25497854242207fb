package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dshills/draftpilot/internal/event"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	c := Default()
	ai := c.AI()
	if !ai.Enabled {
		t.Error("ai.enabled default = false")
	}
	if ai.Provider != "anthropic" {
		t.Errorf("ai.provider default = %q", ai.Provider)
	}
	if ai.MaxTokens != 4096 {
		t.Errorf("ai.maxTokens default = %d", ai.MaxTokens)
	}
	if ai.StepDelay != 60*time.Millisecond {
		t.Errorf("ai.stepDelay default = %v", ai.StepDelay)
	}
	if got := c.Logging().Level; got != "info" {
		t.Errorf("logging.level default = %q", got)
	}
	if got := c.History().MaxEntries; got != 200 {
		t.Errorf("history.maxEntries default = %d", got)
	}
}

func TestLayerPrecedence(t *testing.T) {
	dir := t.TempDir()
	user := writeFile(t, dir, "user.toml", `
[ai]
provider = "openai"
maxTokens = 1024

[logging]
level = "debug"
`)
	project := writeFile(t, dir, "project.toml", `
[ai]
maxTokens = 2048
`)

	c, err := Load(Paths{User: user, Project: project})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	ai := c.AI()
	if ai.Provider != "openai" {
		t.Errorf("provider = %q, want user layer value", ai.Provider)
	}
	if ai.MaxTokens != 2048 {
		t.Errorf("maxTokens = %d, want project layer value 2048", ai.MaxTokens)
	}
	if ai.Temperature != 0.3 {
		t.Errorf("temperature = %v, want default 0.3", ai.Temperature)
	}
	if got := c.Logging().Level; got != "debug" {
		t.Errorf("logging.level = %q", got)
	}
}

func TestEnvOverridesFiles(t *testing.T) {
	dir := t.TempDir()
	user := writeFile(t, dir, "user.toml", `
[ai]
model = "file-model"
`)
	t.Setenv("DRAFTPILOT_MODEL", "env-model")
	t.Setenv("DRAFTPILOT_MAX_TOKENS", "512")
	t.Setenv("DRAFTPILOT_ANTHROPIC_KEY", "sk-test")

	c, err := Load(Paths{User: user})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	ai := c.AI()
	if ai.Model != "env-model" {
		t.Errorf("model = %q, want env value", ai.Model)
	}
	if ai.MaxTokens != 512 {
		t.Errorf("maxTokens = %d, want 512", ai.MaxTokens)
	}
	if ai.APIKey != "sk-test" {
		t.Errorf("APIKey = %q", ai.APIKey)
	}
}

func TestMissingFileIsNotAnError(t *testing.T) {
	c, err := Load(Paths{User: filepath.Join(t.TempDir(), "absent.toml")})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := c.AI().Provider; got != "anthropic" {
		t.Errorf("provider = %q, want default", got)
	}
}

func TestMalformedFile(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "bad.toml", "[ai\nprovider =")
	_, err := Load(Paths{User: bad})
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("Load = %v, want *ParseError", err)
	}
	if perr.Path != bad {
		t.Errorf("ParseError.Path = %q", perr.Path)
	}
}

func TestTypedGetters(t *testing.T) {
	c := Default()
	if _, err := c.GetString("ai.nope"); !errors.Is(err, ErrSettingNotFound) {
		t.Errorf("GetString missing = %v, want ErrSettingNotFound", err)
	}
	if _, err := c.GetInt("ai.provider"); err == nil {
		t.Error("GetInt on string succeeded")
	}
	d, err := c.GetDuration("ai.stepDelay")
	if err != nil || d != 60*time.Millisecond {
		t.Errorf("GetDuration = %v, %v", d, err)
	}
}

func TestWatchReloads(t *testing.T) {
	dir := t.TempDir()
	user := writeFile(t, dir, "user.toml", `
[ai]
model = "before"
`)

	c, err := Load(Paths{User: user})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	changed := make(chan struct{}, 1)
	w, err := Watch(c, func(*Config) {
		select {
		case changed <- struct{}{}:
		default:
		}
	}, WithDebounce(10*time.Millisecond))
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer w.Close()

	writeFile(t, dir, "user.toml", `
[ai]
model = "after"
`)

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("reload notification never arrived")
	}
	if got := c.AI().Model; got != "after" {
		t.Errorf("model = %q after reload", got)
	}
}

func TestWatchPublishesConfigChanged(t *testing.T) {
	dir := t.TempDir()
	user := writeFile(t, dir, "user.toml", `
[ai]
model = "before"
`)

	c, err := Load(Paths{User: user})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	bus := event.NewBus()
	notified := make(chan struct{}, 1)
	if _, err := bus.SubscribeFunc(event.TopicConfigChanged, func(event.Event) error {
		select {
		case notified <- struct{}{}:
		default:
		}
		return nil
	}); err != nil {
		t.Fatalf("SubscribeFunc: %v", err)
	}

	w, err := Watch(c, nil, WithDebounce(10*time.Millisecond), WithBus(bus))
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer w.Close()

	writeFile(t, dir, "user.toml", `
[ai]
model = "after"
`)

	select {
	case <-notified:
	case <-time.After(5 * time.Second):
		t.Fatal("config-changed event never arrived")
	}
}
