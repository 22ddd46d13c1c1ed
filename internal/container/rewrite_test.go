// SPDX-License-Identifier: MPL-2.0

package container

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"testing"

	"github.com/playrun/playrun/internal/artifact"
	"github.com/playrun/playrun/internal/command"
	"github.com/playrun/playrun/internal/envbuild"
	"github.com/playrun/playrun/internal/issue"
	"github.com/playrun/playrun/pkg/types"
)

func fakeLookPath(name string) (string, error) { return "/usr/bin/" + name, nil }

func newTestLayout(t *testing.T, ident types.Ident) artifact.Layout {
	t.Helper()
	l, err := artifact.Resolve(artifact.Options{PrivateDataDir: t.TempDir(), Ident: ident})
	if err != nil {
		t.Fatalf("artifact.Resolve() error: %v", err)
	}
	return l
}

func TestRewriteLiteralCommandLine(t *testing.T) {
	t.Parallel()

	for _, runtime := range []string{"docker", "podman"} {
		t.Run(runtime, func(t *testing.T) {
			t.Parallel()

			home := t.TempDir()
			if err := os.Mkdir(filepath.Join(home, ".ssh"), 0o700); err != nil {
				t.Fatal(err)
			}
			layout := newTestLayout(t, "foo")
			missing := filepath.Join(t.TempDir(), "missing", "inventory")
			vec := command.Vector{
				Executable: "ansible-playbook",
				Args:       []string{"main.yaml", "-i", missing},
				Mode:       types.ExecutionModeAnsibleCommands,
			}

			out, err := NewRewriter(WithLookPath(fakeLookPath)).Rewrite(Request{
				Argv:    vec.Argv(),
				Command: vec,
				Env:     envbuild.NewSnapshot(map[string]string{"FOO": "bar"}),
				Layout:  layout,
			}, Descriptor{
				Runtime:      runtime,
				Image:        "my_container",
				VolumeMounts: []string{"/host1:/container1", "host2:/container2"},
				RunnerMode:   types.RunnerModeInteractive,
				Ambient:      envbuild.NewSnapshot(map[string]string{"HOME": home}),
				BaseDir:      layout.ProjectDir,
				UID:          1234,
			})
			if err != nil {
				t.Fatalf("Rewrite() error: %v", err)
			}

			want := []string{
				runtime, "run", "--rm", "--tty", "--interactive",
				"--workdir", "/runner/project",
				"-v", home + "/.ssh/:/home/runner/.ssh/",
				"-v", home + "/.ssh/:/root/.ssh/",
			}
			if runtime == "podman" {
				want = append(want, "--group-add=root", "--ipc=host")
			}
			want = append(want,
				"-v", layout.PrivateDataDir+"/artifacts/:/runner/artifacts/:Z",
				"-v", layout.PrivateDataDir+"/:/runner/:Z",
				"--env-file", layout.ArtifactDir+"/env.list",
			)
			if runtime == "podman" {
				want = append(want, "--quiet")
			} else {
				want = append(want, "--user="+strconv.Itoa(1234))
			}
			want = append(want,
				"--name", "ansible_runner_foo",
				"my_container", "ansible-playbook", "main.yaml", "-i", missing,
			)

			if got := out.Vector.Argv(); !slices.Equal(got, want) {
				t.Errorf("Argv() mismatch\n got: %q\nwant: %q", got, want)
			}
			if out.Name != "ansible_runner_foo" {
				t.Errorf("Name = %q", out.Name)
			}
		})
	}
}

func TestRewriteUnsafeWrites(t *testing.T) {
	t.Parallel()

	tests := []struct {
		runtime string
		want    string
		wantSet bool
	}{
		{runtime: "podman", want: "1", wantSet: true},
		{runtime: "docker"},
	}

	for _, tt := range tests {
		t.Run(tt.runtime, func(t *testing.T) {
			t.Parallel()

			layout := newTestLayout(t, "foo")
			out, err := NewRewriter(WithLookPath(fakeLookPath)).Rewrite(Request{
				Argv:    []string{"ansible-playbook", "main.yaml"},
				Command: command.Vector{Executable: "ansible-playbook", Args: []string{"main.yaml"}},
				Env:     envbuild.NewSnapshot(map[string]string{"A": "1"}),
				Layout:  layout,
			}, Descriptor{Runtime: tt.runtime, Image: "img"})
			if err != nil {
				t.Fatalf("Rewrite() error: %v", err)
			}

			got, ok := out.Env.Get(UnsafeWritesKey)
			if ok != tt.wantSet || got != tt.want {
				t.Errorf("%s = %q (set %v), want %q (set %v)", UnsafeWritesKey, got, ok, tt.want, tt.wantSet)
			}

			data, err := os.ReadFile(layout.Path(artifact.EnvListFile))
			if err != nil {
				t.Fatalf("read env.list: %v", err)
			}
			if tt.wantSet != strings.Contains(string(data), UnsafeWritesKey+"=1\n") {
				t.Errorf("env.list = %q", data)
			}
			if slices.Contains(out.Vector.Args, "-e") {
				t.Error("variables must travel in env.list, not -e flags")
			}
		})
	}
}

func TestRewriteMountWithSELinuxLabel(t *testing.T) {
	t.Parallel()

	layout := newTestLayout(t, "foo")
	base := t.TempDir()
	if err := os.Mkdir(filepath.Join(base, "project_path"), 0o700); err != nil {
		t.Fatal(err)
	}

	out, err := NewRewriter(WithLookPath(fakeLookPath)).Rewrite(Request{
		Argv:    []string{"ansible-playbook", "foo.yml"},
		Command: command.Vector{Executable: "ansible-playbook", Args: []string{"foo.yml"}, Mode: types.ExecutionModeAnsibleCommands},
		Layout:  layout,
	}, Descriptor{
		Runtime:      "podman",
		Image:        "network-ee",
		VolumeMounts: []string{"project_path:project_path:Z"},
		BaseDir:      base,
	})
	if err != nil {
		t.Fatalf("Rewrite() error: %v", err)
	}

	args := out.Vector.Argv()
	if args[0] != "podman" {
		t.Errorf("argv[0] = %q", args[0])
	}
	found := false
	for i, a := range args {
		if a == "-v" && i+1 < len(args) && strings.HasSuffix(args[i+1], "project_path/:Z") {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("no mount ending in project_path/:Z in %q", args)
	}
}

func TestRewriteOptionPathMounts(t *testing.T) {
	t.Parallel()

	layout := newTestLayout(t, "foo")
	invDir := t.TempDir()
	inv := filepath.Join(invDir, "hosts")
	if err := os.WriteFile(inv, []byte("localhost\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	vaultDir := t.TempDir()
	vault := filepath.Join(vaultDir, "pass")
	if err := os.WriteFile(vault, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	vec := command.Vector{
		Executable: "ansible-playbook",
		Args:       []string{"-i", inv, "-i", "web1,web2", "--vault-password-file=" + vault, "-e", "x=1", "site.yml"},
		Mode:       types.ExecutionModeAnsibleCommands,
	}
	out, err := NewRewriter(WithLookPath(fakeLookPath)).Rewrite(Request{
		Argv: vec.Argv(), Command: vec, Layout: layout,
	}, Descriptor{Runtime: "docker", Image: "img", RunnerMode: types.RunnerModeSubprocess})
	if err != nil {
		t.Fatalf("Rewrite() error: %v", err)
	}

	args := out.Vector.Args
	if slices.Contains(args, "--tty") {
		t.Error("subprocess mode must not allocate a tty")
	}
	for _, want := range []string{invDir + "/:" + invDir + "/", vaultDir + "/:" + vaultDir + "/"} {
		if !slices.Contains(args, want) {
			t.Errorf("missing mount %q in %q", want, args)
		}
	}
}

func TestRewriteErrors(t *testing.T) {
	t.Parallel()

	t.Run("runtime not found", func(t *testing.T) {
		t.Parallel()
		notFound := func(string) (string, error) { return "", errors.New("not found") }
		_, err := NewRewriter(WithLookPath(notFound)).Rewrite(Request{Layout: newTestLayout(t, "x")}, Descriptor{Runtime: "podman"})
		if !issue.IsConfiguration(err) {
			t.Fatalf("Rewrite() error = %v, want configuration error", err)
		}
		if got := issue.Lookup(err); got == nil || got.Id() != issue.ContainerRuntimeNotFoundId {
			t.Errorf("issue.Lookup() = %v", got)
		}
	})

	t.Run("unsafe mount", func(t *testing.T) {
		t.Parallel()
		_, err := NewRewriter(WithLookPath(fakeLookPath)).Rewrite(Request{Layout: newTestLayout(t, "x")},
			Descriptor{Runtime: "podman", Image: "img", VolumeMounts: []string{"/etc:/host-etc"}})
		if !errors.Is(err, ErrUnsafeMount) || !issue.IsConfiguration(err) {
			t.Errorf("Rewrite() error = %v, want unsafe mount configuration error", err)
		}
	})
}

func TestContainerName(t *testing.T) {
	t.Parallel()

	tests := map[types.Ident]string{
		"foo":          "ansible_runner_foo",
		"job 42:retry": "ansible_runner_job_42_retry",
		"a.b-c_d":      "ansible_runner_a.b-c_d",
	}
	for in, want := range tests {
		if got := ContainerName(in); got != want {
			t.Errorf("ContainerName(%q) = %q, want %q", in, got, want)
		}
	}
}
