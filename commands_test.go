package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"dinoevent/config"
	"dinoevent/models"
	"dinoevent/store"
)

func fileConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Backend = config.BackendFile
	cfg.DataDir = t.TempDir()
	cfg.Timezone = "UTC"
	return cfg
}

func TestExportLeavesFreshStoreSeedable(t *testing.T) {
	cfg := fileConfig(t)
	ctx := context.Background()

	b, err := openBackend(ctx, cfg, false)
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if err := exportEvents(ctx, b.Store, &out); err != nil {
		t.Fatal(err)
	}
	b.Close()
	var exported []models.Event
	if err := json.Unmarshal(out.Bytes(), &exported); err != nil || len(exported) != 0 {
		t.Fatalf("export = %q, %v", out.String(), err)
	}

	served, err := openBackend(ctx, cfg, true)
	if err != nil {
		t.Fatal(err)
	}
	defer served.Close()
	events, err := served.Store.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].ID != "1" {
		t.Fatalf("example not seeded after export: %+v", events)
	}
}

func TestSeedExamplesOnlyWhenEmpty(t *testing.T) {
	cfg := fileConfig(t)
	ctx := context.Background()
	b, err := openBackend(ctx, cfg, false)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	examples := store.ExampleEvents(time.Now())
	created, total, err := seedExamples(ctx, b.Store, examples)
	if err != nil || created != 1 || total != 1 {
		t.Fatalf("first seed: created=%d total=%d err=%v", created, total, err)
	}
	created, total, err = seedExamples(ctx, b.Store, examples)
	if err != nil || created != 0 || total != 1 {
		t.Fatalf("second seed: created=%d total=%d err=%v", created, total, err)
	}
}
