// SPDX-License-Identifier: MPL-2.0

package envbuild

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/playrun/playrun/internal/issue"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"
	"mvdan.cc/sh/v3/shell"
)

// Per-run input files under <private_data_dir>/env/.
const (
	EnvVarsFile   = "envvars"
	PasswordsFile = "passwords"
	SettingsFile  = "settings"
	SSHKeyFile    = "ssh_key"
	CmdlineFile   = "cmdline"
	ExtraVarsFile = "extravars"
)

// ErrNotMapping is returned when a per-run file that must hold a mapping holds
// something else.
var ErrNotMapping = errors.New("expected a mapping")

// readOptional returns the file content and whether it exists. Errors other
// than "does not exist" are returned.
func readOptional(path string) ([]byte, bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, true, err
	}
	return data, true, nil
}

func malformed(name, path string, err error) error {
	return issue.NewErrorContext().
		WithKind(issue.ErrConfiguration).
		WithIssue(issue.MalformedEnvFileId).
		WithOperation("load " + name).
		WithResource(path).
		WithSuggestion("Check that the file is valid YAML or JSON").
		Wrap(err).
		BuildError()
}

// decodeMapping decodes a YAML/JSON mapping. An empty document is an empty map.
func decodeMapping(data []byte) (*yaml.Node, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, nil
	}
	root := doc.Content[0]
	if root.Kind == yaml.ScalarNode && root.Tag == "!!null" {
		return nil, nil
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w, got %s", ErrNotMapping, nodeKindName(root))
	}
	return root, nil
}

func nodeKindName(n *yaml.Node) string {
	switch n.Kind {
	case yaml.SequenceNode:
		return "a list"
	case yaml.ScalarNode:
		return "a scalar"
	case yaml.AliasNode:
		return "an alias"
	default:
		return "an unsupported document"
	}
}

// loadEnvVars reads env/envvars. Absent is empty; malformed is a
// configuration error.
func loadEnvVars(path string) (map[string]string, error) {
	data, ok, err := readOptional(path)
	if err != nil {
		return nil, malformed(EnvVarsFile, path, err)
	}
	if !ok {
		return nil, nil
	}
	root, err := decodeMapping(data)
	if err != nil {
		return nil, malformed(EnvVarsFile, path, err)
	}
	if root == nil {
		return nil, nil
	}
	var m map[string]any
	if err := root.Decode(&m); err != nil {
		return nil, malformed(EnvVarsFile, path, err)
	}
	return StringifyMap(m), nil
}

// loadPasswords reads env/passwords into ordered pattern rules. Any problem
// yields no rules and a warning; the invocation never fails because of it.
func loadPasswords(path string, logger *log.Logger) []PromptRule {
	data, ok, err := readOptional(path)
	if !ok && err == nil {
		return nil
	}
	warn := func(err error) []PromptRule {
		logger.Warn("ignoring password prompts", "file", path, "err", err)
		return nil
	}
	if err != nil {
		return warn(err)
	}
	root, err := decodeMapping(data)
	if err != nil {
		return warn(err)
	}
	if root == nil {
		return nil
	}

	rules := make([]PromptRule, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		var response any
		if err := root.Content[i+1].Decode(&response); err != nil {
			return warn(err)
		}
		rule, err := NewPromptRule(root.Content[i].Value, Stringify(response))
		if err != nil {
			return warn(err)
		}
		rules = append(rules, rule)
	}
	return rules
}

// loadSettings reads env/settings. Absent is empty; malformed is a
// configuration error.
func loadSettings(path string) (Settings, error) {
	data, ok, err := readOptional(path)
	if err != nil {
		return Settings{}, malformed(SettingsFile, path, err)
	}
	if !ok {
		return Settings{}, nil
	}
	root, err := decodeMapping(data)
	if err != nil {
		return Settings{}, malformed(SettingsFile, path, err)
	}
	if root == nil {
		return Settings{}, nil
	}
	var s Settings
	if err := root.Decode(&s); err != nil {
		return Settings{}, malformed(SettingsFile, path, err)
	}
	return s, nil
}

// loadSSHKey reads env/ssh_key. Absent or empty means no key; a file that
// exists but cannot be read is a configuration error.
func loadSSHKey(path string) (string, error) {
	data, ok, err := readOptional(path)
	if err != nil {
		return "", malformed(SSHKeyFile, path, err)
	}
	if !ok || len(bytes.TrimSpace(data)) == 0 {
		return "", nil
	}
	return string(data), nil
}

// loadCmdline reads env/cmdline and splits it with POSIX shell word rules.
// Parameter expansions resolve against lookup.
func loadCmdline(path string, lookup func(string) string) ([]string, error) {
	data, ok, err := readOptional(path)
	if err != nil {
		return nil, malformed(CmdlineFile, path, err)
	}
	if !ok {
		return nil, nil
	}
	src := strings.TrimSpace(string(data))
	if src == "" {
		return nil, nil
	}
	fields, err := shell.Fields(src, lookup)
	if err != nil {
		return nil, malformed(CmdlineFile, path, err)
	}
	return fields, nil
}

// existingFile returns path when it names a regular file.
func existingFile(path string) string {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return ""
	}
	return path
}
