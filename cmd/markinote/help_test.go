package main

import (
	"errors"
	"strings"
	"testing"
)

func TestRunHelp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    []string
		want    []string
		wantErr error
	}{
		{"overview", nil, []string{"serve", "render", "export", "css", "version"}, nil},
		{"serve", []string{"serve"}, []string{"--addr", "--root", "SIGTERM"}, nil},
		{"render", []string{"render"}, []string{"--output", "--page", "--stats", "stdin"}, nil},
		{"export", []string{"export"}, []string{"--timeout", "ROD_BROWSER_BIN"}, nil},
		{"css", []string{"css"}, []string{"--style", "--list"}, nil},
		{"version", []string{"version"}, []string{"Usage: markinote version"}, nil},
		{"help", []string{"help"}, []string{"Usage: markinote help"}, nil},
		{"unknown", []string{"bogus"}, nil, ErrUnknownCommand},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env, stdout, stderr := testEnv("", nil)
			err := runHelp(tt.args, env)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("runHelp() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				if !strings.Contains(stderr.String(), "Usage: markinote") {
					t.Errorf("usage not printed to stderr: %q", stderr.String())
				}
				return
			}
			for _, want := range tt.want {
				if !strings.Contains(stdout.String(), want) {
					t.Errorf("help missing %q", want)
				}
			}
		})
	}
}

func TestUsage_CommonFlagsListed(t *testing.T) {
	t.Parallel()

	for _, cmd := range []string{"serve", "render", "export", "css"} {
		env, stdout, _ := testEnv("", nil)
		if err := runHelp([]string{cmd}, env); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(stdout.String(), "--config") || !strings.Contains(stdout.String(), "--log-level") {
			t.Errorf("%s usage misses common flags", cmd)
		}
	}
}
