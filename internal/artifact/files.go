// SPDX-License-Identifier: MPL-2.0

package artifact

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/playrun/playrun/pkg/types"
)

// CommandRecord is the content of the "command" artifact.
type CommandRecord struct {
	Args []string `json:"command"`
	Cwd  string   `json:"cwd"`
	// EnvKeys lists the variable names handed to the child; values are omitted
	// because they may carry secrets.
	EnvKeys []string `json:"env"`
}

// WriteFile atomically replaces one artifact file.
func (l Layout) WriteFile(name string, data []byte) error {
	path := l.Path(name)
	tmp, err := os.CreateTemp(l.ArtifactDir, "."+name+"-*")
	if err != nil {
		return fmt.Errorf("write artifact %s: %w", name, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write artifact %s: %w", name, err)
	}
	if err := tmp.Chmod(filePerm); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write artifact %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write artifact %s: %w", name, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("write artifact %s: %w", name, err)
	}
	return nil
}

// WriteResult records the terminal status and return code.
func (l Layout) WriteResult(status types.Status, rc types.ExitCode) error {
	if err := l.WriteFile(RCFile, []byte(rc.String())); err != nil {
		return err
	}
	return l.WriteFile(StatusFile, []byte(status.String()))
}

// WriteCommand records the final argument vector, working directory and
// environment keys.
func (l Layout) WriteCommand(args []string, cwd string, env map[string]string) error {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	data, err := json.MarshalIndent(CommandRecord{Args: args, Cwd: cwd, EnvKeys: keys}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode command artifact: %w", err)
	}
	return l.WriteFile(CommandFile, data)
}

// OpenOutput opens an append-only output file such as stdout or stderr.
func (l Layout) OpenOutput(name string) (*os.File, error) {
	f, err := os.OpenFile(l.Path(name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, filePerm)
	if err != nil {
		return nil, fmt.Errorf("open artifact %s: %w", name, err)
	}
	return f, nil
}

// ReadResult reads back the status and return code of a finished run.
func ReadResult(artifactDir string) (types.Status, types.ExitCode, error) {
	rawStatus, err := os.ReadFile(filepath.Join(artifactDir, StatusFile))
	if err != nil {
		return "", 0, fmt.Errorf("read status artifact: %w", err)
	}
	status := types.Status(strings.TrimSpace(string(rawStatus)))
	if err := status.Validate(); err != nil {
		return "", 0, err
	}

	rawRC, err := os.ReadFile(filepath.Join(artifactDir, RCFile))
	if err != nil {
		return "", 0, fmt.Errorf("read rc artifact: %w", err)
	}
	rc, err := types.ParseExitCode(string(rawRC))
	if err != nil {
		return "", 0, err
	}
	return status, rc, nil
}

// Rotate keeps the newest keep directories under root and removes the rest.
// The directory named by current is never removed. keep <= 0 disables rotation.
func Rotate(root string, keep int, current types.Ident) ([]string, error) {
	if keep <= 0 {
		return nil, nil
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("list artifact root: %w", err)
	}

	type dirEntry struct {
		name string
		info fs.FileInfo
	}
	dirs := make([]dirEntry, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() || e.Name() == string(current) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		dirs = append(dirs, dirEntry{name: e.Name(), info: info})
	}

	// The current invocation counts toward keep.
	keepOthers := keep - 1
	if len(dirs) <= keepOthers {
		return nil, nil
	}

	slices.SortFunc(dirs, func(a, b dirEntry) int {
		if c := b.info.ModTime().Compare(a.info.ModTime()); c != 0 {
			return c
		}
		return strings.Compare(a.name, b.name)
	})

	var removed []string
	for _, d := range dirs[keepOthers:] {
		path := filepath.Join(root, d.name)
		if err := os.RemoveAll(path); err != nil {
			return removed, fmt.Errorf("rotate artifacts: %w", err)
		}
		removed = append(removed, path)
	}
	return removed, nil
}
