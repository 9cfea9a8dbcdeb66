package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/franckalain/nutrisnap/internal/database"
	"github.com/franckalain/nutrisnap/internal/models"
	"github.com/franckalain/nutrisnap/internal/store"
)

func TestResolveID(t *testing.T) {
	meals := []models.Meal{
		{ID: "3f2a1c00-aaaa"},
		{ID: "3f2b9d00-bbbb"},
		{ID: "77e1"},
	}

	tests := []struct {
		prefix  string
		want    string
		wantErr string
	}{
		{prefix: "3f2a", want: "3f2a1c00-aaaa"},
		{prefix: "77e1", want: "77e1"},
		{prefix: "3f2", wantErr: "ambiguous"},
		{prefix: "zz", wantErr: "not found"},
	}
	for _, tt := range tests {
		got, err := resolveID(meals, tt.prefix)
		if tt.wantErr != "" {
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("resolveID(%q) error = %v, want %q", tt.prefix, err, tt.wantErr)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("resolveID(%q) = %q, %v; want %q", tt.prefix, got, err, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("dal\nrice", 50); got != "dal rice" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("chicken biryani with raita", 10); got != "chicken..." {
		t.Errorf("truncate = %q", got)
	}
}

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "meals.db")
	cfg := fmt.Sprintf(`{"server":{"port":"0"},"database":{"type":"sqlite","path":%q}}`, dbPath)
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(cfg), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("NUTRISNAP_DB_PATH", "")

	kv, err := database.NewSQLiteKV(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer kv.Close()
	st := store.New(kv, "")
	ctx := context.Background()
	now := time.Now()
	if err := st.Append(ctx, models.Meal{ID: "bbbb2222-old", Description: "leftover pulao", Timestamp: now.Add(-72 * time.Hour).UnixMilli(), Nutrients: models.Nutrients{Calories: 400}}); err != nil {
		t.Fatal(err)
	}
	if err := st.Append(ctx, models.Meal{ID: "aaaa1111-today", Description: "masala omelette", Timestamp: now.UnixMilli(), Nutrients: models.Nutrients{Calories: 250, Protein: 18}}); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("nutrisnap %s: %v\n%s", strings.Join(args, " "), err, out.String())
	}
	return out.String()
}

func TestCommandsAgainstSQLiteLog(t *testing.T) {
	cfg := writeTestConfig(t)

	out := run(t, "--config", cfg, "list")
	today, old := strings.Index(out, "masala omelette"), strings.Index(out, "leftover pulao")
	if today < 0 || old < 0 || today > old {
		t.Fatalf("list should show both meals newest first:\n%s", out)
	}

	out = run(t, "--config", cfg, "list", "-n", "1")
	if strings.Contains(out, "leftover pulao") {
		t.Fatalf("list -n 1 showed more than one meal:\n%s", out)
	}

	out = run(t, "--config", cfg, "today")
	if !strings.Contains(out, "1 meals") || !strings.Contains(out, "Calories: 250 kcal") || strings.Contains(out, "leftover pulao") {
		t.Fatalf("unexpected today output:\n%s", out)
	}

	out = run(t, "--config", cfg, "delete", "bbbb")
	if !strings.Contains(out, "Deleted meal: bbbb2222") {
		t.Fatalf("unexpected delete output:\n%s", out)
	}

	out = run(t, "--config", cfg, "clear-today")
	if !strings.Contains(out, "Removed 1 meals") {
		t.Fatalf("unexpected clear-today output:\n%s", out)
	}

	out = run(t, "--config", cfg, "list")
	if !strings.Contains(out, "No meals logged") {
		t.Fatalf("log should be empty:\n%s", out)
	}
}

func TestDeleteUnknownPrefixFails(t *testing.T) {
	cfg := writeTestConfig(t)

	cmd := newRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetArgs([]string{"--config", cfg, "delete", "zzzz"})
	if err := cmd.Execute(); err == nil || !strings.Contains(err.Error(), "meal not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
}
