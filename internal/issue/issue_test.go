// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"fmt"
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	tests := []struct {
		id       Id
		wantNil  bool
		contains string
	}{
		{PrivateDataDirUnusableId, false, "Private data directory"},
		{MalformedEnvFileId, false, "malformed"},
		{ContainerRuntimeNotFoundId, false, "Container runtime not found"},
		{UnsafeMountId, false, "system directory"},
		{SecretChannelFailedId, false, "delivery pipe"},
		{ExecutableNotFoundId, false, "Executable not found"},
		{ConfigLoadFailedId, false, "Failed to load configuration"},
		{ArtifactDirUnusableId, false, "Artifact directory"},
		{Id(9999), true, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.contains, func(t *testing.T) {
			got := Get(tt.id)
			if tt.wantNil {
				if got != nil {
					t.Errorf("Get(%d) should return nil", tt.id)
				}
				return
			}
			if got == nil {
				t.Fatalf("Get(%d) returned nil", tt.id)
			}
			if !strings.Contains(string(got.MarkdownMsg()), tt.contains) {
				t.Errorf("Get(%d).MarkdownMsg() should contain %q", tt.id, tt.contains)
			}
		})
	}
}

func TestValuesCoversCatalog(t *testing.T) {
	if got := len(Values()); got != int(ArtifactDirUnusableId) {
		t.Errorf("Values() returned %d issues, want %d", got, ArtifactDirUnusableId)
	}
}

func TestLookup(t *testing.T) {
	linked := NewErrorContext().
		WithOperation("resolve container runtime").
		WithIssue(ContainerRuntimeNotFoundId).
		BuildError()

	if got := Lookup(fmt.Errorf("prepare: %w", linked)); got == nil || got.Id() != ContainerRuntimeNotFoundId {
		t.Errorf("Lookup() = %v, want ContainerRuntimeNotFoundId", got)
	}
	if Lookup(fmt.Errorf("plain")) != nil {
		t.Error("Lookup() on a plain error should return nil")
	}
}

func TestIssue_Render(t *testing.T) {
	originalRender := render
	defer func() { render = originalRender }()

	render = func(in string, stylePath string) (string, error) {
		return in, nil
	}

	withLinks := &Issue{
		id:       Id(9999),
		mdMsg:    "# Test Issue",
		docLinks: []HttpLink{"https://docs.example.com"},
	}
	rendered, err := withLinks.Render("")
	if err != nil {
		t.Fatalf("Render() returned error: %v", err)
	}
	if !strings.Contains(rendered, "See also") {
		t.Error("Render() with links should contain 'See also'")
	}

	for _, is := range Values() {
		out, err := is.Render("")
		if err != nil || out == "" {
			t.Errorf("Issue %d failed to render: %v", is.Id(), err)
		}
		if strings.Contains(out, "See also") {
			t.Errorf("Issue %d has no links but rendered 'See also'", is.Id())
		}
	}
}

func TestDocLinksAreCloned(t *testing.T) {
	is := &Issue{docLinks: []HttpLink{"https://a.example"}}
	links := is.DocLinks()
	links[0] = "modified"
	if is.DocLinks()[0] != "https://a.example" {
		t.Error("DocLinks() should return a clone")
	}
}
