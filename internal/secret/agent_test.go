// SPDX-License-Identifier: MPL-2.0

package secret

import (
	"slices"
	"strings"
	"testing"

	"mvdan.cc/sh/v3/syntax"
)

func TestWrapWithSSHAgent(t *testing.T) {
	t.Parallel()

	argv := []string{"ansible-playbook", "main.yaml"}
	const script = "trap 'rm -f /tmp/sshkey' EXIT && ssh-add /tmp/sshkey && rm -f /tmp/sshkey && ansible-playbook main.yaml"

	tests := []struct {
		name     string
		authSock string
		silence  bool
		want     []string
	}{
		{
			name: "defaults",
			want: []string{"ssh-agent", "sh", "-c", script},
		},
		{
			name:     "with auth socket",
			authSock: "/tmp/sshauth",
			want:     []string{"ssh-agent", "-a", "/tmp/sshauth", "sh", "-c", script},
		},
		{
			name:    "silenced ssh-add",
			silence: true,
			want: []string{
				"ssh-agent", "sh", "-c",
				"trap 'rm -f /tmp/sshkey' EXIT && ssh-add /tmp/sshkey 2>/dev/null && rm -f /tmp/sshkey && ansible-playbook main.yaml",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := WrapWithSSHAgent(argv, "/tmp/sshkey", tt.authSock, tt.silence)
			if err != nil {
				t.Fatalf("WrapWithSSHAgent() error: %v", err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("WrapWithSSHAgent() =\n%q\nwant\n%q", got, tt.want)
			}
		})
	}
}

func TestWrapWithSSHAgentQuotesWords(t *testing.T) {
	t.Parallel()

	got, err := WrapWithSSHAgent([]string{"whoami", ";hostname"}, "/tmp/key dir/k", "", false)
	if err != nil {
		t.Fatalf("WrapWithSSHAgent() error: %v", err)
	}
	script := got[len(got)-1]

	for _, want := range []string{
		"ssh-add '/tmp/key dir/k' && ",
		"&& rm -f '/tmp/key dir/k' && ",
		"&& whoami ';hostname'",
	} {
		if !strings.Contains(script, want) {
			t.Errorf("script %q does not contain %q", script, want)
		}
	}

	f, err := syntax.NewParser().Parse(strings.NewReader(script), "")
	if err != nil {
		t.Fatalf("script does not parse: %v", err)
	}
	if len(f.Stmts) != 1 {
		t.Errorf("script has %d statements, want one && chain", len(f.Stmts))
	}
}
