package workspace_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"jobmate/ingest-service/internal/workspace"
)

// ── Sanitize ───────────────────────────────────────────────────────────────

func TestSanitize_Replacements(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"acme-dev", "acme_dev"},
		{"Backend Engineer", "Backend_Engineer"},
		{"Senior (Go) Dev: Remote", "Senior__Go__Dev__Remote"},
		{`a/b\c`, "a_b_c"},
		{`what?*|<>"`, "what"},
		{"tab\there", "tabhere"},
		{"Zażółć gęślą", "Zażółć_gęślą"},
	}
	for _, c := range cases {
		if got := workspace.Sanitize(c.in); got != c.want {
			t.Errorf("Sanitize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	inputs := []string{
		"", " ", "---", "C++ / C# developer", `"quoted" <tag>`,
		"::", "already_safe", "(((", "Ścieżka\\do\\pliku", "\x00\x01",
	}
	for _, in := range inputs {
		once := workspace.Sanitize(in)
		twice := workspace.Sanitize(once)
		if once != twice {
			t.Errorf("Sanitize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestSanitize_NoForbiddenCharacters(t *testing.T) {
	in := `/\:*?"<>| all the bad ones -() and some text`
	got := workspace.Sanitize(in)
	if strings.ContainsAny(got, `/\:*?"<>|`) {
		t.Errorf("Sanitize(%q) = %q still contains forbidden characters", in, got)
	}
}

func TestSanitize_EmptyUsesPlaceholder(t *testing.T) {
	for _, in := range []string{"", "***", "?<>|\"", "\n"} {
		if got := workspace.Sanitize(in); got != workspace.Placeholder {
			t.Errorf("Sanitize(%q) = %q, want placeholder %q", in, got, workspace.Placeholder)
		}
	}
}

// ── Allocator ──────────────────────────────────────────────────────────────

func fixedClock() time.Time {
	return time.Date(2026, 10, 15, 9, 30, 5, 0, time.UTC)
}

func TestAllocate_CreatesTimestampedDir(t *testing.T) {
	base := t.TempDir()
	a := workspace.NewAllocator(base, fixedClock)

	dir, err := a.Allocate("acme-dev")
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	want := filepath.Join(base, "2026_10_15_09_30_05_acme_dev")
	if dir != want {
		t.Fatalf("Allocate = %q, want %q", dir, want)
	}
	if st, err := os.Stat(dir); err != nil || !st.IsDir() {
		t.Fatalf("expected directory at %s, stat err=%v", dir, err)
	}
}

func TestAllocate_TwiceSameSecondReuses(t *testing.T) {
	base := t.TempDir()
	a := workspace.NewAllocator(base, fixedClock)

	first, err := a.Allocate("acme-dev")
	if err != nil {
		t.Fatalf("first Allocate: %v", err)
	}
	marker := filepath.Join(first, "keep.txt")
	if err := os.WriteFile(marker, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}

	second, err := a.Allocate("acme-dev")
	if err != nil {
		t.Fatalf("second Allocate: %v", err)
	}
	if first != second {
		t.Errorf("paths differ: %q vs %q", first, second)
	}
	if b, err := os.ReadFile(marker); err != nil || string(b) != "data" {
		t.Errorf("existing workspace content lost: %q, %v", b, err)
	}
}

func TestAllocate_CollidingNamesGetDistinctDirs(t *testing.T) {
	base := t.TempDir()
	a := workspace.NewAllocator(base, fixedClock)

	first, err := a.Allocate("acme-dev")
	if err != nil {
		t.Fatalf("Allocate acme-dev: %v", err)
	}
	second, err := a.Allocate("acme_dev")
	if err != nil {
		t.Fatalf("Allocate acme_dev: %v", err)
	}
	if first == second {
		t.Fatalf("distinct listings share %s", first)
	}
	if second != first+"_2" {
		t.Errorf("second = %q, want %q", second, first+"_2")
	}

	again, err := a.Allocate("acme_dev")
	if err != nil {
		t.Fatal(err)
	}
	if again != second {
		t.Errorf("re-allocating acme_dev = %q, want %q", again, second)
	}
}

func TestAllocate_MissingBase(t *testing.T) {
	a := workspace.NewAllocator(filepath.Join(t.TempDir(), "nope"), fixedClock)

	_, err := a.Allocate("x")
	var wsErr *workspace.Error
	if !errors.As(err, &wsErr) {
		t.Fatalf("expected *workspace.Error, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected wrapped ErrNotExist, got %v", err)
	}
}

func TestAllocate_BaseIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "plain")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	a := workspace.NewAllocator(file, fixedClock)

	_, err := a.Allocate("x")
	if !errors.Is(err, workspace.ErrBaseNotDir) {
		t.Fatalf("expected ErrBaseNotDir, got %v", err)
	}
}

func TestAllocate_EmptyNameUsesPlaceholder(t *testing.T) {
	base := t.TempDir()
	a := workspace.NewAllocator(base, fixedClock)

	dir, err := a.Allocate("???")
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if filepath.Base(dir) != "2026_10_15_09_30_05_"+workspace.Placeholder {
		t.Errorf("unexpected dir name %q", filepath.Base(dir))
	}
}
