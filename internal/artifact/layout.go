// SPDX-License-Identifier: MPL-2.0

// Package artifact owns the on-disk layout of one invocation: the private
// data directory, the per-identifier artifact directory, and the files
// playrun writes into it.
package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/playrun/playrun/internal/issue"
	"github.com/playrun/playrun/pkg/types"
)

// File names inside the artifact directory.
const (
	StdoutFile     = "stdout"
	StderrFile     = "stderr"
	RCFile         = "rc"
	StatusFile     = "status"
	CommandFile    = "command"
	EnvListFile    = "env.list"
	SSHKeyDataFile = "ssh_key_data"
	FactCacheDir   = "fact_cache"

	privateDirPrefix = ".playrun-"
	dirPerm          = 0o700
	filePerm         = 0o600
)

type (
	// Options selects where an invocation's files live.
	Options struct {
		// PrivateDataDir is caller-owned when set; created under AutoCreateBase otherwise.
		PrivateDataDir string
		// AutoCreateBase is the parent of auto-created private data dirs ("" = OS temp dir).
		AutoCreateBase string
		// ArtifactRoot overrides <private_data_dir>/artifacts.
		ArtifactRoot string
		// Ident names the artifact sub-directory.
		Ident types.Ident
		// ProjectDir overrides <private_data_dir>/project.
		ProjectDir string
	}

	// Layout is the resolved, immutable set of paths of one invocation.
	Layout struct {
		PrivateDataDir string
		ArtifactRoot   string
		ArtifactDir    string
		ProjectDir     string
		Ident          types.Ident
		// OwnsPrivateDataDir is true when playrun created PrivateDataDir and
		// must remove it in Cleanup.
		OwnsPrivateDataDir bool
		// OwnsArtifactDir is true when Resolve created ArtifactDir.
		OwnsArtifactDir bool
	}
)

// Resolve creates the directories of a new invocation and returns their layout.
func Resolve(opts Options) (Layout, error) {
	if err := opts.Ident.Validate(); err != nil {
		return Layout{}, issue.Configuration("resolve artifact layout", string(opts.Ident), err)
	}

	l := Layout{Ident: opts.Ident}

	if opts.PrivateDataDir == "" {
		dir, err := os.MkdirTemp(opts.AutoCreateBase, privateDirPrefix)
		if err != nil {
			return Layout{}, issue.NewErrorContext().
				WithKind(issue.ErrSetup).
				WithIssue(issue.PrivateDataDirUnusableId).
				WithOperation("create private data directory").
				WithResource(opts.AutoCreateBase).
				Wrap(err).
				BuildError()
		}
		l.PrivateDataDir = dir
		l.OwnsPrivateDataDir = true
	} else {
		abs, err := filepath.Abs(opts.PrivateDataDir)
		if err != nil {
			return Layout{}, issue.Configuration("resolve private data directory", opts.PrivateDataDir, err)
		}
		if err := os.MkdirAll(abs, dirPerm); err != nil {
			return Layout{}, issue.NewErrorContext().
				WithKind(issue.ErrSetup).
				WithIssue(issue.PrivateDataDirUnusableId).
				WithOperation("create private data directory").
				WithResource(abs).
				Wrap(err).
				BuildError()
		}
		l.PrivateDataDir = abs
	}

	l.ArtifactRoot = filepath.Join(l.PrivateDataDir, "artifacts")
	if opts.ArtifactRoot != "" {
		abs, err := filepath.Abs(opts.ArtifactRoot)
		if err != nil {
			return Layout{}, issue.Configuration("resolve artifact root", opts.ArtifactRoot, err)
		}
		l.ArtifactRoot = abs
	}
	l.ArtifactDir = filepath.Join(l.ArtifactRoot, string(opts.Ident))

	l.ProjectDir = filepath.Join(l.PrivateDataDir, "project")
	if opts.ProjectDir != "" {
		abs, err := filepath.Abs(opts.ProjectDir)
		if err != nil {
			return Layout{}, issue.Configuration("resolve project directory", opts.ProjectDir, err)
		}
		l.ProjectDir = abs
	}

	if _, err := os.Stat(l.ArtifactDir); errors.Is(err, fs.ErrNotExist) {
		l.OwnsArtifactDir = true
	}
	if err := os.MkdirAll(l.ArtifactDir, dirPerm); err != nil {
		return Layout{}, issue.NewErrorContext().
			WithKind(issue.ErrSetup).
			WithIssue(issue.ArtifactDirUnusableId).
			WithOperation("create artifact directory").
			WithResource(l.ArtifactDir).
			Wrap(err).
			BuildError()
	}

	return l, nil
}

// EnvDir is the directory of optional per-run input files.
func (l Layout) EnvDir() string { return filepath.Join(l.PrivateDataDir, "env") }

// EnvFile returns the path of one per-run input file (envvars, passwords, ...).
func (l Layout) EnvFile(name string) string { return filepath.Join(l.EnvDir(), name) }

// InventoryPath is the default inventory location.
func (l Layout) InventoryPath() string { return filepath.Join(l.PrivateDataDir, "inventory") }

// Path returns the path of a file inside the artifact directory.
func (l Layout) Path(name string) string { return filepath.Join(l.ArtifactDir, name) }

// ContainerArtifactDir is the artifact directory as seen from inside an
// isolated run.
func (l Layout) ContainerArtifactDir() string {
	return filepath.Join(ContainerArtifactRoot, string(l.Ident))
}

// InContainer maps a host path to where an isolated run sees it: paths under
// the artifact root and the private data directory follow their mounts, any
// other path is returned unchanged.
func (l Layout) InContainer(path string) string {
	for _, m := range []struct{ host, container string }{
		{l.ArtifactRoot, ContainerArtifactRoot},
		{l.PrivateDataDir, ContainerRunnerDir},
	} {
		if m.host == "" {
			continue
		}
		rel, err := filepath.Rel(m.host, path)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		return filepath.Join(m.container, rel)
	}
	return path
}

// Cleanup removes the private data directory when playrun created it.
// Caller-owned directories are left alone.
func (l Layout) Cleanup() error {
	if !l.OwnsPrivateDataDir || l.PrivateDataDir == "" {
		return nil
	}
	if err := os.RemoveAll(l.PrivateDataDir); err != nil {
		return fmt.Errorf("remove private data directory %s: %w", l.PrivateDataDir, err)
	}
	return nil
}

// Discard removes what Resolve created for a run that never started: the
// whole private data directory when playrun created it, otherwise only a new
// artifact directory. Caller-owned directories are left alone.
func (l Layout) Discard() error {
	if l.OwnsPrivateDataDir {
		return l.Cleanup()
	}
	if !l.OwnsArtifactDir || l.ArtifactDir == "" {
		return nil
	}
	if err := os.RemoveAll(l.ArtifactDir); err != nil {
		return fmt.Errorf("remove artifact directory %s: %w", l.ArtifactDir, err)
	}
	return nil
}

// Fixed in-container paths of isolated runs.
const (
	ContainerRunnerDir    = "/runner"
	ContainerArtifactRoot = "/runner/artifacts"
	ContainerProjectDir   = "/runner/project"
)
