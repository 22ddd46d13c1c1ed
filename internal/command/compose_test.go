// SPDX-License-Identifier: MPL-2.0

package command

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/playrun/playrun/internal/issue"
	"github.com/playrun/playrun/pkg/types"
)

func TestPlaybook(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts PlaybookOptions
		want []string
	}{
		{
			name: "bare playbook",
			opts: PlaybookOptions{Playbook: "site.yml"},
			want: []string{"ansible-playbook", "site.yml"},
		},
		{
			name: "all options in command-line order",
			opts: PlaybookOptions{
				Playbook: "site.yml",
				RunOptions: RunOptions{
					CmdlineArgs:   []string{"--check"},
					Inventories:   []string{"/inv/a", "/inv/b"},
					Limit:         "web",
					ExtraVarsFile: "/pdd/env/extravars",
					ExtraVars:     map[string]any{"b": 2, "a": "x"},
					Verbosity:     3,
					Tags:          "deploy",
					Forks:         10,
				},
			},
			want: []string{
				"ansible-playbook", "--check",
				"-i", "/inv/a", "-i", "/inv/b",
				"--limit", "web",
				"-e", "@/pdd/env/extravars",
				"-e", `{"a":"x","b":2}`,
				"-vvv",
				"--tags", "deploy",
				"--forks", "10",
				"site.yml",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v, err := Playbook(tt.opts)
			if err != nil {
				t.Fatalf("Playbook() error: %v", err)
			}
			if !slices.Equal(v.Argv(), tt.want) {
				t.Errorf("Argv() = %q, want %q", v.Argv(), tt.want)
			}
			if v.Mode != types.ExecutionModeAnsibleCommands {
				t.Errorf("Mode = %s", v.Mode)
			}
		})
	}
}

func TestPlaybookRequiresTarget(t *testing.T) {
	t.Parallel()

	_, err := Playbook(PlaybookOptions{})
	if !errors.Is(err, ErrMissingTarget) || !issue.IsConfiguration(err) {
		t.Errorf("Playbook() error = %v", err)
	}
}

func TestAdHoc(t *testing.T) {
	t.Parallel()

	v, err := AdHoc(AdHocOptions{
		Module:      "debug",
		ModuleArgs:  "msg=hi",
		HostPattern: "localhost",
		RunOptions:  RunOptions{Inventories: []string{"/pdd/inventory"}},
	})
	if err != nil {
		t.Fatalf("AdHoc() error: %v", err)
	}
	want := []string{"ansible", "-i", "/pdd/inventory", "-m", "debug", "-a", "msg=hi", "localhost"}
	if !slices.Equal(v.Argv(), want) {
		t.Errorf("Argv() = %q, want %q", v.Argv(), want)
	}
}

func TestGeneric(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		exe      string
		args     []string
		cmdline  []string
		want     []string
		wantMode types.ExecutionMode
	}{
		{
			name:     "semicolon stays a literal argument",
			exe:      "whoami",
			args:     []string{";hostname"},
			cmdline:  []string{"--ignored"},
			want:     []string{"whoami", ";hostname"},
			wantMode: types.ExecutionModeGenericCommands,
		},
		{
			name:     "automation tool gets env cmdline",
			exe:      "/usr/bin/ansible-playbook",
			args:     []string{"site.yml", "-i", "inv"},
			cmdline:  []string{"--diff"},
			want:     []string{"/usr/bin/ansible-playbook", "site.yml", "-i", "inv", "--diff"},
			wantMode: types.ExecutionModeAnsibleCommands,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v := Generic(tt.exe, tt.args, tt.cmdline)
			if !slices.Equal(v.Argv(), tt.want) {
				t.Errorf("Argv() = %q, want %q", v.Argv(), tt.want)
			}
			if v.Mode != tt.wantMode {
				t.Errorf("Mode = %s, want %s", v.Mode, tt.wantMode)
			}
		})
	}
}

func TestPluginDocsAndList(t *testing.T) {
	t.Parallel()

	v, err := PluginDocs(DocsOptions{Names: []string{"file", "copy"}, Type: "module", Format: "json", ModulePath: "/lib"})
	if err != nil {
		t.Fatalf("PluginDocs() error: %v", err)
	}
	want := []string{"ansible-doc", "-j", "-t", "module", "-M", "/lib", "file", "copy"}
	if !slices.Equal(v.Argv(), want) {
		t.Errorf("PluginDocs Argv() = %q, want %q", v.Argv(), want)
	}

	if _, err := PluginDocs(DocsOptions{}); !errors.Is(err, ErrMissingPluginNames) {
		t.Errorf("PluginDocs() without names error = %v", err)
	}

	v, err = PluginList(ListOptions{ListFiles: true})
	if err != nil {
		t.Fatalf("PluginList() error: %v", err)
	}
	if !slices.Equal(v.Argv(), []string{"ansible-doc", "-F"}) {
		t.Errorf("PluginList Argv() = %q", v.Argv())
	}
}

func TestConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		opts    ConfigOptions
		want    []string
		wantErr error
	}{
		{name: "list", opts: ConfigOptions{Action: "list"}, want: []string{"ansible-config", "list"}},
		{
			name: "dump only changed",
			opts: ConfigOptions{Action: "dump", ConfigFile: "/etc/ansible.cfg", OnlyChanged: true},
			want: []string{"ansible-config", "dump", "-c", "/etc/ansible.cfg", "--only-changed"},
		},
		{name: "unknown action", opts: ConfigOptions{Action: "edit"}, wantErr: ErrUnknownAction},
		{name: "only changed with view", opts: ConfigOptions{Action: "view", OnlyChanged: true}, wantErr: ErrOnlyChanged},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v, err := Config(tt.opts)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Config() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Config() error: %v", err)
			}
			if !slices.Equal(v.Argv(), tt.want) {
				t.Errorf("Argv() = %q, want %q", v.Argv(), tt.want)
			}
		})
	}
}

func TestInventory(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		opts    InventoryOptions
		want    []string
		wantErr error
	}{
		{
			name: "list json",
			opts: InventoryOptions{Action: "list", Inventories: []string{"inv_1", "inv_2"}, Format: "json"},
			want: []string{"ansible-inventory", "--list", "-i", "inv_1", "-i", "inv_2"},
		},
		{
			name: "host yaml with export",
			opts: InventoryOptions{Action: "host", Host: "web1", Format: "yaml", Export: true},
			want: []string{"ansible-inventory", "--host", "web1", "--yaml", "--export"},
		},
		{
			name: "graph with vars",
			opts: InventoryOptions{Action: "graph", Vars: true},
			want: []string{"ansible-inventory", "--graph", "--vars"},
		},
		{name: "host without host", opts: InventoryOptions{Action: "host"}, wantErr: ErrMissingHost},
		{name: "graph as toml", opts: InventoryOptions{Action: "graph", Format: "toml"}, wantErr: ErrUnsupportedFormat},
		{name: "bad format", opts: InventoryOptions{Action: "list", Format: "xml"}, wantErr: ErrUnsupportedFormat},
		{name: "bad action", opts: InventoryOptions{Action: "dump"}, wantErr: ErrUnknownAction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v, err := Inventory(tt.opts)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Inventory() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Inventory() error: %v", err)
			}
			if !slices.Equal(v.Argv(), tt.want) {
				t.Errorf("Argv() = %q, want %q", v.Argv(), tt.want)
			}
		})
	}
}

func TestLookPath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tool := filepath.Join(dir, "mytool")
	if err := os.WriteFile(tool, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	plain := filepath.Join(dir, "notexec")
	if err := os.WriteFile(plain, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	v, err := LookPath(Vector{Executable: "mytool"}, "/nonexistent"+string(os.PathListSeparator)+dir)
	if err != nil {
		t.Fatalf("LookPath() error: %v", err)
	}
	if v.Executable != tool {
		t.Errorf("Executable = %q, want %q", v.Executable, tool)
	}

	_, err = LookPath(Vector{Executable: "notexec"}, dir)
	if !errors.Is(err, ErrExecutableNotFound) {
		t.Errorf("LookPath() non-executable error = %v", err)
	}
	if got := issue.Lookup(err); got == nil || got.Id() != issue.ExecutableNotFoundId {
		t.Errorf("issue.Lookup() = %v", got)
	}

	if _, err := LookPath(Vector{Executable: tool}, ""); err != nil {
		t.Errorf("LookPath() with absolute path error: %v", err)
	}
}
