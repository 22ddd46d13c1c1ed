// SPDX-License-Identifier: MPL-2.0

package container

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/playrun/playrun/internal/issue"
)

var (
	// ErrUnsafeMount is returned for mounts of system directories.
	ErrUnsafeMount = errors.New("refusing to mount a system directory")
	// ErrMalformedMount is returned for caller mounts that are not src[:dst[:labels]].
	ErrMalformedMount = errors.New("malformed volume mount")

	unsafeMountPoints = []string{
		"/", "/bin", "/boot", "/dev", "/etc", "/home", "/lib", "/lib64",
		"/proc", "/sbin", "/sys", "/usr", "/var",
	}
)

// mountSet collects -v flags in order, dropping repeats.
type mountSet struct {
	workdir string
	expand  func(string) string
	baseDir string
	flags   []string
}

// add normalizes one mount and records it. A source that does not exist is
// skipped. An empty dst, or one equal to the raw source, mounts the source
// at its own resolved path.
func (m *mountSet) add(rawSrc, rawDst, labels string) error {
	if rawSrc == "" {
		return nil
	}
	src := m.expand(rawSrc)
	if !filepath.IsAbs(src) {
		src = filepath.Join(m.baseDir, src)
	}
	src = filepath.Clean(src)

	info, err := os.Stat(src)
	if err != nil {
		return nil
	}

	dst := rawDst
	switch {
	case dst == "" || dst == rawSrc:
		dst = src
	case !filepath.IsAbs(dst):
		dst = filepath.Join(m.workdir, dst)
	}
	dst = filepath.Clean(dst)

	if !info.IsDir() {
		src = filepath.Dir(src)
		dst = filepath.Dir(dst)
	}

	for _, p := range []string{src, dst} {
		if slices.Contains(unsafeMountPoints, p) {
			return issue.NewErrorContext().
				WithKind(issue.ErrConfiguration).
				WithIssue(issue.UnsafeMountId).
				WithOperation("prepare container mounts").
				WithResource(p).
				Wrap(fmt.Errorf("%w: %s", ErrUnsafeMount, p)).
				BuildError()
		}
	}

	spec := withSlash(src) + ":" + withSlash(dst)
	if labels != "" {
		spec += ":" + labels
	}
	if !slices.Contains(m.flags, spec) {
		m.flags = append(m.flags, "-v", spec)
	}
	return nil
}

// addSpec parses a caller mount "src[:dst[:labels]]".
func (m *mountSet) addSpec(spec string) error {
	parts := strings.SplitN(spec, ":", 3)
	if parts[0] == "" {
		return issue.Configuration("parse volume mount", spec, ErrMalformedMount)
	}
	var dst, labels string
	if len(parts) > 1 {
		dst = parts[1]
	}
	if len(parts) > 2 {
		labels = parts[2]
	}
	return m.add(parts[0], dst, labels)
}

func withSlash(p string) string {
	if strings.HasSuffix(p, string(os.PathSeparator)) {
		return p
	}
	return p + string(os.PathSeparator)
}
