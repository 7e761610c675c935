package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-locsync"
	"github.com/google/uuid"
)

func TestBuildModuleUsesMemoryDefaults(t *testing.T) {
	resources, err := BuildModule(context.Background(), Options{EnvPrefix: "LOCSYNC_BOOTSTRAP_TEST_"})
	if err != nil {
		t.Fatalf("build module: %v", err)
	}
	defer resources.Close()

	if resources.Module == nil {
		t.Fatal("expected module to be initialised")
	}
	if resources.Config.Storage.Driver != "memory" {
		t.Fatalf("expected memory storage, got %q", resources.Config.Storage.Driver)
	}
	if resources.Module.Container().JobExecutor() == nil {
		t.Fatal("expected job executor to be configured")
	}
}

func TestResolveConfigReadsEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "LOCSYNC_ENVFILE_TEST_DEFAULT_LANGUAGE=en\nLOCSYNC_ENVFILE_TEST_JOBS_BATCH_SIZE=3\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Cleanup(func() {
		os.Unsetenv("LOCSYNC_ENVFILE_TEST_DEFAULT_LANGUAGE")
		os.Unsetenv("LOCSYNC_ENVFILE_TEST_JOBS_BATCH_SIZE")
	})

	cfg, err := ResolveConfig(Options{
		EnvFile:   path,
		EnvPrefix: "LOCSYNC_ENVFILE_TEST_",
		Configure: func(cfg *locsync.Config) { cfg.Jobs.PollInterval = 0 },
	})
	if err != nil {
		t.Fatalf("resolve config: %v", err)
	}
	if cfg.DefaultLanguage != "en" {
		t.Fatalf("expected default language en, got %q", cfg.DefaultLanguage)
	}
	if cfg.Jobs.BatchSize != 3 {
		t.Fatalf("expected batch size 3, got %d", cfg.Jobs.BatchSize)
	}
	if cfg.Jobs.PollInterval != 0 {
		t.Fatal("expected Configure hook to run")
	}
}

func TestLoadEnvIgnoresMissingFile(t *testing.T) {
	if err := LoadEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("expected missing env file to be ignored, got %v", err)
	}
}

func TestParseFields(t *testing.T) {
	fields, err := ParseFields([]string{"label=Chemise", "definition=Une=chemise"})
	if err != nil {
		t.Fatalf("parse fields: %v", err)
	}
	if fields["label"] != "Chemise" || fields["definition"] != "Une=chemise" {
		t.Fatalf("unexpected fields %v", fields)
	}
	if _, err := ParseFields([]string{"label"}); err == nil {
		t.Fatal("expected error for missing value separator")
	}
}

func TestParseUUIDsRejectsNil(t *testing.T) {
	id := uuid.New()
	ids, err := ParseUUIDs([]string{id.String(), " "})
	if err != nil || len(ids) != 1 || ids[0] != id {
		t.Fatalf("unexpected parse result %v %v", ids, err)
	}
	if _, err := ParseUUIDs([]string{uuid.Nil.String()}); err == nil {
		t.Fatal("expected nil uuid to be rejected")
	}
}
