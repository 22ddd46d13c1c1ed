// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"testing"
)

func TestParseAssignments(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		words   []string
		typed   bool
		want    map[string]any
		wantErr bool
	}{
		{
			name:  "typed scalars",
			words: []string{"port=8080", "debug=true", "name=web", "ratio=0.5", "empty="},
			typed: true,
			want:  map[string]any{"port": 8080, "debug": true, "name": "web", "ratio": 0.5, "empty": ""},
		},
		{
			name:  "untyped keeps strings",
			words: []string{"PORT=8080", "URL=http://x/?a=b"},
			want:  map[string]any{"PORT": "8080", "URL": "http://x/?a=b"},
		},
		{name: "missing equals", words: []string{"port"}, wantErr: true},
		{name: "empty key", words: []string{"=1"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := parseAssignments(tt.words, tt.typed)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseAssignments() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseAssignments() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestSplitCmdline(t *testing.T) {
	t.Parallel()

	got, err := splitCmdline(`--diff -e 'msg="hi there"'`)
	if err != nil {
		t.Fatalf("splitCmdline() error = %v", err)
	}
	want := []string{"--diff", "-e", `msg="hi there"`}
	if !slices.Equal(got, want) {
		t.Errorf("splitCmdline() = %q, want %q", got, want)
	}

	if got, err := splitCmdline("  "); err != nil || got != nil {
		t.Errorf("splitCmdline(blank) = %q, %v", got, err)
	}
	if _, err := splitCmdline(`'unterminated`); err == nil {
		t.Error("splitCmdline(unterminated quote) error = nil")
	}
}

func TestRunFlagsRequest(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	plays := filepath.Join(dir, "plays.yml")
	if err := os.WriteFile(plays, []byte("- hosts: all\n  tasks: []\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	inventory := filepath.Join(dir, "hosts")
	if err := os.WriteFile(inventory, []byte("web1\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	app, _, _ := newTestApp(t)
	flags := &runFlags{}
	runCmd := bindRunCommand(app, flags)
	if err := runCmd.ParseFlags([]string{
		"--plays", plays,
		"--inventory-data", inventory,
		"-e", "port=8080",
		"--env", "FOO=1",
		"--cmdline", "--diff --check",
		"--process-isolation",
		"--container-runtime", "docker",
		"--quiet",
	}); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}

	req, err := flags.request(runCmd, app)
	if err != nil {
		t.Fatalf("request() error = %v", err)
	}
	if len(req.Plays) != 1 || req.Plays[0]["hosts"] != "all" {
		t.Errorf("Plays = %v", req.Plays)
	}
	if req.InventoryData != "web1\n" {
		t.Errorf("InventoryData = %q", req.InventoryData)
	}
	if req.ExtraVars["port"] != 8080 || req.EnvVars["FOO"] != "1" {
		t.Errorf("vars = %v %v", req.ExtraVars, req.EnvVars)
	}
	if !slices.Equal(req.Cmdline, []string{"--diff", "--check"}) {
		t.Errorf("Cmdline = %q", req.Cmdline)
	}
	if req.Settings.ProcessIsolation == nil || !*req.Settings.ProcessIsolation {
		t.Error("process isolation not requested")
	}
	if req.Settings.ProcessIsolationExecutable == nil || *req.Settings.ProcessIsolationExecutable != "docker" {
		t.Error("runtime not requested")
	}
	if req.Settings.ContainerImage != nil {
		t.Error("an unset image flag must not become a setting")
	}
	if req.Stdout != nil || req.Stderr != nil {
		t.Error("--quiet still tees output")
	}
}
