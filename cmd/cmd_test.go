package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/spigell/lead-scorer/internal/ai"
	"github.com/spigell/lead-scorer/internal/ai/gemini"
	"github.com/spigell/lead-scorer/internal/ai/openai"
)

func TestNewProvider(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("MOONSHOT_API_KEY", "sk-moon")

	tests := []struct {
		name       string
		cfg        *AIConfig
		wantName   string
		wantModel  string
		configured bool
	}{
		{name: "empty provider disables ai", cfg: &AIConfig{}, wantName: ""},
		{name: "openai inline key", cfg: &AIConfig{Provider: "openai", OpenAI: &ProviderConfig{APIKey: "sk"}}, wantName: ai.ProviderOpenAI, wantModel: openai.OpenAIModel, configured: true},
		{name: "openai without key", cfg: &AIConfig{Provider: "OpenAI"}, wantName: ai.ProviderOpenAI, wantModel: openai.OpenAIModel},
		{name: "moonshot env key", cfg: &AIConfig{Provider: "moonshot"}, wantName: ai.ProviderMoonshot, wantModel: openai.MoonshotModel, configured: true},
		{name: "gemini custom model", cfg: &AIConfig{Provider: "gemini", Gemini: &ProviderConfig{Model: "gemini-x", APIKey: "k"}}, wantName: ai.ProviderGemini, wantModel: "gemini-x", configured: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := newProvider(tt.cfg, zap.NewNop())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantName == "" {
				if p != nil {
					t.Fatalf("expected no provider, got %s", p.Name())
				}
				return
			}
			if p.Name() != tt.wantName || p.Model() != tt.wantModel || p.Configured() != tt.configured {
				t.Fatalf("unexpected provider %s %s configured=%v", p.Name(), p.Model(), p.Configured())
			}
		})
	}
}

func TestNewProviderGeminiType(t *testing.T) {
	p, err := newProvider(&AIConfig{Provider: "gemini"}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := p.(*gemini.Generator); !ok {
		t.Fatalf("expected gemini generator, got %T", p)
	}
}

func TestNewProviderRejectsUnknown(t *testing.T) {
	if _, err := newProvider(&AIConfig{Provider: "claude"}, zap.NewNop()); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestScoreFiles(t *testing.T) {
	dir := t.TempDir()
	offerFile := filepath.Join(dir, "offer.json")
	leadsFile := filepath.Join(dir, "leads.csv")

	if err := os.WriteFile(offerFile, []byte(`{"name":"Acme CRM","value_props":["automation"],"ideal_use_cases":["sales teams"]}`), 0o600); err != nil {
		t.Fatalf("write offer: %v", err)
	}
	if err := os.WriteFile(leadsFile, []byte("name,role,company,industry,location,linkedin_bio\nJane,VP of Sales,Acme,SaaS,NY,...\nTom,Intern,Shop,Retail,LA,Bio\n"), 0o600); err != nil {
		t.Fatalf("write leads: %v", err)
	}

	config := &Config{
		Server:  &ServerConfig{},
		Scoring: &ScoringConfig{Workers: 2},
		AI:      &AIConfig{Provider: ai.ProviderNone},
	}
	svc, err := newService(config, zap.NewNop())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	run, err := scoreFiles(context.Background(), svc, offerFile, leadsFile, zap.NewNop())
	if err != nil {
		t.Fatalf("score files: %v", err)
	}
	if run.Count != 2 || run.Results[0].Name != "Jane" || run.Results[0].Score != 75 || run.Results[1].Score != 35 {
		t.Fatalf("unexpected run %+v", run)
	}

	if _, err := scoreFiles(context.Background(), svc, filepath.Join(dir, "missing.json"), leadsFile, zap.NewNop()); err == nil {
		t.Fatal("expected error for missing offer file")
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version", "--short"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if strings.TrimSpace(out.String()) != version {
		t.Fatalf("unexpected output %q", out.String())
	}
}
