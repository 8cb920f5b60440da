package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "key")
	if err := os.WriteFile(file, []byte("  from-file\n"), 0o600); err != nil {
		t.Fatalf("write key file: %v", err)
	}

	t.Setenv("LEAD_SCORER_TEST_KEY", " from-env ")

	tests := []struct {
		name   string
		src    Source
		expect string
	}{
		{name: "file wins", src: Source{File: file, Value: "inline", Env: "LEAD_SCORER_TEST_KEY"}, expect: "from-file"},
		{name: "value before env", src: Source{Value: " inline ", Env: "LEAD_SCORER_TEST_KEY"}, expect: "inline"},
		{name: "env fallback", src: Source{Env: "LEAD_SCORER_TEST_KEY"}, expect: "from-env"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.src)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty")
	if err := os.WriteFile(empty, []byte("\n"), 0o600); err != nil {
		t.Fatalf("write key file: %v", err)
	}

	t.Setenv("LEAD_SCORER_EMPTY_KEY", "")

	tests := []struct {
		name    string
		src     Source
		contain string
	}{
		{name: "nothing configured", src: Source{Name: "openai api key"}, contain: "openai api key is not configured"},
		{name: "empty env", src: Source{Name: "openai api key", Env: "LEAD_SCORER_EMPTY_KEY"}, contain: "set LEAD_SCORER_EMPTY_KEY"},
		{name: "empty file", src: Source{File: empty}, contain: "is empty"},
		{name: "missing file", src: Source{File: filepath.Join(dir, "nope")}, contain: "reading secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.src)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.contain) {
				t.Fatalf("expected %q in %q", tt.contain, err.Error())
			}
		})
	}
}

func TestLoaderReadsEnvOnEveryCall(t *testing.T) {
	load := Loader(Source{Name: "key", Env: "LEAD_SCORER_ROTATING_KEY"})

	t.Setenv("LEAD_SCORER_ROTATING_KEY", "first")
	if got, _ := load(); got != "first" {
		t.Fatalf("expected first, got %q", got)
	}

	t.Setenv("LEAD_SCORER_ROTATING_KEY", "second")
	if got, _ := load(); got != "second" {
		t.Fatalf("expected second, got %q", got)
	}
}
