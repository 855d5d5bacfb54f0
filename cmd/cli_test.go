// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"voiceeq/pkg/utils"
)

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "voice.wav")
	if err := os.WriteFile(path, utils.SineWAV(22050, 44100, 1000, 0.5), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t *testing.T, args ...string) error {
	t.Helper()
	root := NewRootCommand(context.Background())
	root.SetArgs(args)
	return root.Execute()
}

func TestAnalyzeWritesSVG(t *testing.T) {
	sample := writeSample(t)
	dir := t.TempDir()
	eq := filepath.Join(dir, "eq.yaml")
	os.WriteFile(eq, []byte("- {frequency: 1000, gain: 3}\n- {frequency: 5000, gain: -2}\n"), 0o644)
	svg := filepath.Join(dir, "chart.svg")

	if err := run(t, "analyze", sample, "--eq", eq, "--svg", svg); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	data, err := os.ReadFile(svg)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "<svg") || !strings.Contains(string(data), "<rect") {
		t.Error("svg has no bars")
	}
}

func TestAnalyzeErrors(t *testing.T) {
	sample := writeSample(t)
	cases := []struct {
		name string
		args []string
	}{
		{"no file", []string{"analyze"}},
		{"missing file", []string{"analyze", filepath.Join(t.TempDir(), "nope.wav")}},
		{"missing eq", []string{"analyze", sample, "--eq", filepath.Join(t.TempDir(), "nope.yaml")}},
		{"missing config", []string{"analyze", sample, "--config", filepath.Join(t.TempDir(), "nope.yaml")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := run(t, tc.args...); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestRecordFlags(t *testing.T) {
	root := NewRootCommand(context.Background())
	rec, _, err := root.Find([]string{"record"})
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"device", "duration", "pick", "eq", "svg", "png", "tui", "serve", "udp"} {
		if rec.Flags().Lookup(name) == nil {
			t.Errorf("record is missing --%s", name)
		}
	}
}
