package config_test

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/gazolla/chatcli/internal/config"
	"github.com/gazolla/chatcli/internal/reasoning"
	"github.com/gazolla/chatcli/pkg/provider/llm"
	llmmock "github.com/gazolla/chatcli/pkg/provider/llm/mock"
)

func TestLogLevel_IsValid(t *testing.T) {
	t.Parallel()
	for _, l := range []config.LogLevel{config.LogDebug, config.LogInfo, config.LogWarn, config.LogError} {
		if !l.IsValid() {
			t.Errorf("%q should be valid", l)
		}
	}
	if config.LogLevel("verbose").IsValid() {
		t.Error("verbose should not be valid")
	}
}

func TestLogLevel_Level(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   config.LogLevel
		want slog.Level
	}{
		{config.LogDebug, slog.LevelDebug},
		{config.LogInfo, slog.LevelInfo},
		{config.LogWarn, slog.LevelWarn},
		{config.LogError, slog.LevelError},
		{config.LogLevel(""), slog.LevelInfo},
	}
	for _, tc := range cases {
		if got := tc.in.Level(); got != tc.want {
			t.Errorf("Level(%q): got %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestEngineConfig_StrategyKind(t *testing.T) {
	t.Parallel()
	var e config.EngineConfig
	if e.StrategyKind() != reasoning.KindSingleShot {
		t.Errorf("empty strategy should default to single-shot, got %q", e.StrategyKind())
	}
	e.Strategy = reasoning.KindStepwise
	if e.StrategyKind() != reasoning.KindStepwise {
		t.Errorf("got %q, want stepwise", e.StrategyKind())
	}
}

func TestRegistry_CreateLLM(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()
	want := &llmmock.Provider{}
	var gotEntry config.ProviderEntry
	reg.RegisterLLM("mock", func(entry config.ProviderEntry) (llm.Provider, error) {
		gotEntry = entry
		return want, nil
	})

	p, err := reg.CreateLLM(config.ProviderEntry{Name: "mock", Model: "test-model"})
	if err != nil {
		t.Fatalf("CreateLLM: %v", err)
	}
	if p != want {
		t.Error("CreateLLM should return the factory's provider")
	}
	if gotEntry.Model != "test-model" {
		t.Errorf("factory should receive the entry, got model %q", gotEntry.Model)
	}
}

func TestRegistry_UnregisteredProvider(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()
	_, err := reg.CreateLLM(config.ProviderEntry{Name: "nope"})
	if !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("expected ErrProviderNotRegistered, got %v", err)
	}
}

func TestRegistry_OverwriteRegistration(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()
	first := &llmmock.Provider{}
	second := &llmmock.Provider{}
	reg.RegisterLLM("mock", func(config.ProviderEntry) (llm.Provider, error) {
		return first, nil
	})
	reg.RegisterLLM("mock", func(config.ProviderEntry) (llm.Provider, error) {
		return second, nil
	})

	p, err := reg.CreateLLM(config.ProviderEntry{Name: "mock"})
	if err != nil {
		t.Fatalf("CreateLLM: %v", err)
	}
	if p != second {
		t.Error("later registration should win")
	}
}
