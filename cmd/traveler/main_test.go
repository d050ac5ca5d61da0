package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/zulandar/traveler/internal/config"
	"github.com/zulandar/traveler/internal/db"
	"github.com/zulandar/traveler/internal/store"
	"github.com/zulandar/traveler/internal/store/sqlstore"
	"github.com/zulandar/traveler/internal/telegraph"
	"go.uber.org/zap"
)

// clearEnv blanks the deployment variables config reads.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"BOT_TOKEN", "API_HOST", "PORT", "APP_NAME", "DEVELOP", "DATABASE_DSN",
		"GOOGLE_APPLICATION_CREDENTIALS", "DIALOGFLOW_PROJECT_ID", "GEMINI_API_KEY",
	} {
		t.Setenv(k, "")
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	if !strings.Contains(out, "traveler dev") {
		t.Errorf("expected output to contain 'traveler dev', got: %s", out)
	}
	if !strings.Contains(out, "commit: none") {
		t.Errorf("expected output to contain 'commit: none', got: %s", out)
	}
}

func TestVersionCmdWithCustomValues(t *testing.T) {
	origVersion, origCommit, origDate := Version, Commit, Date
	Version, Commit, Date = "1.0.0", "abc123", "2026-01-01"
	defer func() { Version, Commit, Date = origVersion, origCommit, origDate }()

	out, err := run(t, "version")
	if err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	if !strings.Contains(out, "traveler 1.0.0") || !strings.Contains(out, "built: 2026-01-01") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestRootCmdHelp(t *testing.T) {
	out, err := run(t, "--help")
	if err != nil {
		t.Fatalf("help failed: %v", err)
	}
	for _, sub := range []string{"serve", "deliver", "migrate", "runs", "article", "version"} {
		if !strings.Contains(out, sub) {
			t.Errorf("help missing %q", sub)
		}
	}
}

func TestRootCmdSubcommands(t *testing.T) {
	cmd := newRootCmd()
	want := map[string]bool{"serve": false, "deliver": false, "migrate": false, "runs": false, "article": false, "version": false}
	for _, c := range cmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestExecute_ReturnsExitCode(t *testing.T) {
	ok := &cobra.Command{Use: "ok", RunE: func(*cobra.Command, []string) error { return nil }}
	ok.SetArgs([]string{})
	if code := execute(ok); code != 0 {
		t.Errorf("execute(ok) = %d, want 0", code)
	}
	bad := &cobra.Command{Use: "bad", SilenceErrors: true, RunE: func(*cobra.Command, []string) error { return os.ErrInvalid }}
	bad.SetArgs([]string{})
	bad.SetErr(new(bytes.Buffer))
	if code := execute(bad); code != 1 {
		t.Errorf("execute(bad) = %d, want 1", code)
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("TRAVELER_TEST_GREETING=hello\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("TRAVELER_TEST_GREETING") })

	if err := loadEnvFile(path); err != nil {
		t.Fatalf("loadEnvFile: %v", err)
	}
	if got := os.Getenv("TRAVELER_TEST_GREETING"); got != "hello" {
		t.Errorf("TRAVELER_TEST_GREETING = %q, want hello", got)
	}
	if err := loadEnvFile(filepath.Join(dir, "absent.env")); err != nil {
		t.Errorf("missing env file should be ignored, got %v", err)
	}
}

// writeSQLConfig writes a config using a sqlite file in a temp dir.
func writeSQLConfig(t *testing.T) (cfgPath, dbPath string) {
	return writeConfig(t, "telegram:\n  token: \"1:test\"\n")
}

// writeConfig writes the given telegram section plus a sqlite store.
func writeConfig(t *testing.T, telegramYAML string) (cfgPath, dbPath string) {
	t.Helper()
	dir := t.TempDir()
	dbPath = filepath.Join(dir, "traveler.db")
	cfgPath = filepath.Join(dir, "traveler.yaml")
	yaml := telegramYAML +
		"store:\n  backend: sql\n  sessions: sql\n" +
		"database:\n  driver: sqlite\n  path: " + dbPath + "\n" +
		"log:\n  level: error\n  format: json\n"
	if err := os.WriteFile(cfgPath, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return cfgPath, dbPath
}

func TestSQLWorkflow(t *testing.T) {
	clearEnv(t)
	cfgPath, dbPath := writeSQLConfig(t)
	envFile := filepath.Join(t.TempDir(), "none.env")
	base := []string{"--config", cfgPath, "--env-file", envFile}

	out, err := run(t, append(base, "migrate")...)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if !strings.Contains(out, "Migrated") {
		t.Errorf("migrate output = %q", out)
	}

	out, err = run(t, append(base, "article", "add", "--lang", "en", "--image", "https://img/lviv.jpg", "--text", "Lviv")...)
	if err != nil {
		t.Fatalf("article add: %v", err)
	}
	if !strings.Contains(out, "Added article 1 (en)") {
		t.Errorf("article add output = %q", out)
	}

	registerUser(t, dbPath, "1001")

	mock := telegraph.NewMockAdapter()
	orig := newAdapter
	newAdapter = func(_ *config.Config, _ *zap.Logger, sendOnly bool) (telegraph.Adapter, http.Handler, error) {
		if !sendOnly {
			t.Error("deliver should build a send-only adapter")
		}
		return mock, nil, nil
	}
	defer func() { newAdapter = orig }()

	out, err = run(t, append(base, "deliver")...)
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if !strings.Contains(out, "1 delivered") {
		t.Errorf("deliver output = %q", out)
	}
	sent := mock.AllSent()
	if len(sent) != 1 || sent[0].ChatID != "1001" || sent[0].ImageURL != "https://img/lviv.jpg" {
		t.Errorf("sent = %+v", sent)
	}

	out, err = run(t, append(base, "runs")...)
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if !strings.Contains(out, "cli") || !strings.Contains(out, "completed") {
		t.Errorf("runs output = %q", out)
	}
}

// registerUser creates an English profile directly in the database.
func registerUser(t *testing.T, dbPath, chatID string) {
	t.Helper()
	gdb, err := db.Open(db.Options{Driver: "sqlite", Path: dbPath})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	s, _ := sqlstore.New(gdb)
	if err := s.CreateProfile(context.Background(), store.Profile{
		ChatID: chatID, DisplayName: "Anna", CompanionName: "Rex", LanguageCode: "en",
	}); err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}
	sqlDB, _ := gdb.DB()
	sqlDB.Close()
}

// botAPIRecorder answers Telegram Bot API calls and records the methods.
type botAPIRecorder struct {
	mu      sync.Mutex
	methods []string
}

func (b *botAPIRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	b.mu.Lock()
	b.methods = append(b.methods, method)
	b.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch method {
	case "getMe":
		w.Write([]byte(`{"ok":true,"result":{"id":42,"is_bot":true,"first_name":"Traveler","username":"traveler_bot"}}`))
	case "sendPhoto", "sendMessage":
		w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":1001,"type":"private"}}}`))
	default:
		w.Write([]byte(`{"ok":true,"result":true}`))
	}
}

func (b *botAPIRecorder) called() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.methods...)
}

func TestDeliver_LeavesWebhookAlone(t *testing.T) {
	clearEnv(t)
	api := &botAPIRecorder{}
	srv := httptest.NewServer(api)
	defer srv.Close()

	cfgPath, dbPath := writeConfig(t, "telegram:\n  token: \"1:test\"\n  mode: webhook\n"+
		"  webhook_host: https://traveler.example.com\n"+
		"  api_endpoint: \""+srv.URL+"/bot%s/%s\"\n")
	base := []string{"--config", cfgPath, "--env-file", filepath.Join(t.TempDir(), "none.env")}

	if _, err := run(t, append(base, "migrate")...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := run(t, append(base, "article", "add", "--lang", "en", "--image", "https://img/lviv.jpg", "--text", "Lviv")...); err != nil {
		t.Fatalf("article add: %v", err)
	}
	registerUser(t, dbPath, "1001")

	out, err := run(t, append(base, "deliver")...)
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if !strings.Contains(out, "1 delivered") {
		t.Errorf("deliver output = %q", out)
	}

	methods := api.called()
	var sentPhoto bool
	for _, m := range methods {
		switch m {
		case "setWebhook", "deleteWebhook", "getUpdates":
			t.Errorf("deliver called %s; a running bot would lose its webhook", m)
		case "sendPhoto":
			sentPhoto = true
		}
	}
	if !sentPhoto {
		t.Errorf("methods = %v, want a sendPhoto", methods)
	}
}

func TestArticleAdd_RejectsUnknownLanguage(t *testing.T) {
	clearEnv(t)
	cfgPath, _ := writeSQLConfig(t)
	_, err := run(t, "--config", cfgPath, "article", "add", "--lang", "de", "--image", "x")
	if err == nil || !strings.Contains(err.Error(), "unsupported language") {
		t.Errorf("err = %v, want unsupported language", err)
	}
}

func TestRuns_Empty(t *testing.T) {
	clearEnv(t)
	cfgPath, _ := writeSQLConfig(t)
	if _, err := run(t, "--config", cfgPath, "migrate"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	out, err := run(t, "--config", cfgPath, "runs")
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if !strings.Contains(out, "No delivery runs recorded.") {
		t.Errorf("runs output = %q", out)
	}
}

func TestLoadApp_ExplicitMissingConfig(t *testing.T) {
	clearEnv(t)
	_, err := run(t, "--config", filepath.Join(t.TempDir(), "absent.yaml"), "runs")
	if err == nil {
		t.Fatal("expected error for explicit missing config")
	}
}

func TestNewAdapter_Platforms(t *testing.T) {
	tg := &config.Config{Platform: config.PlatformTelegram, Telegram: config.TelegramConfig{Token: "1:t", Mode: "webhook", WebhookHost: "https://h", WebhookPath: "/webhook/1:t"}}
	a, hook, err := newAdapter(tg, zap.NewNop(), false)
	if err != nil {
		t.Fatalf("telegram: %v", err)
	}
	if a == nil || hook == nil {
		t.Error("telegram webhook mode should return a webhook handler")
	}

	_, hook, err = newAdapter(tg, zap.NewNop(), true)
	if err != nil || hook != nil {
		t.Errorf("send-only: hook = %v, err = %v", hook, err)
	}

	tg.Telegram.Mode = "polling"
	_, hook, err = newAdapter(tg, zap.NewNop(), false)
	if err != nil || hook != nil {
		t.Errorf("polling: hook = %v, err = %v", hook, err)
	}

	dc := &config.Config{Platform: config.PlatformDiscord, Discord: config.DiscordConfig{Token: "d"}}
	if a, _, err := newAdapter(dc, zap.NewNop(), false); err != nil || a == nil {
		t.Errorf("discord: adapter = %v, err = %v", a, err)
	}
}

func TestNewNLU_None(t *testing.T) {
	c, err := newNLU(context.Background(), config.NLUConfig{Backend: config.BackendNone})
	if err != nil || c == nil {
		t.Fatalf("newNLU(none) = %v, %v", c, err)
	}
	if _, err := newNLU(context.Background(), config.NLUConfig{Backend: config.BackendGemini}); err == nil {
		t.Error("gemini without key should fail")
	}
}
