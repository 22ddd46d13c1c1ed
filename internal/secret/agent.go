// SPDX-License-Identifier: MPL-2.0

package secret

import (
	"fmt"
	"regexp"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// WrapWithSSHAgent returns argv re-written to run under a private ssh-agent
// that loads keyPath first. The key file is removed right after loading and
// again on exit. authSock, when set, fixes the agent's socket path; silence
// discards ssh-add's stderr.
func WrapWithSSHAgent(argv []string, keyPath, authSock string, silence bool) ([]string, error) {
	key, err := quote(keyPath)
	if err != nil {
		return nil, err
	}
	removeKey := "rm -f " + key
	trap, err := quote(removeKey)
	if err != nil {
		return nil, err
	}

	add := "ssh-add " + key
	if silence {
		add += " 2>/dev/null"
	}

	words := make([]string, 0, len(argv))
	for _, arg := range argv {
		w, err := quote(arg)
		if err != nil {
			return nil, err
		}
		words = append(words, w)
	}

	script := strings.Join([]string{
		"trap " + trap + " EXIT",
		add,
		removeKey,
		strings.Join(words, " "),
	}, " && ")

	wrapped := []string{"ssh-agent"}
	if authSock != "" {
		wrapped = append(wrapped, "-a", authSock)
	}
	return append(wrapped, "sh", "-c", script), nil
}

// safeWord matches words that need no quoting in any POSIX shell context.
var safeWord = regexp.MustCompile(`^[A-Za-z0-9_@%+=:,./-]+$`)

func quote(s string) (string, error) {
	if safeWord.MatchString(s) {
		return s, nil
	}
	q, err := syntax.Quote(s, syntax.LangPOSIX)
	if err != nil {
		return "", fmt.Errorf("quote %q for sh: %w", s, err)
	}
	return q, nil
}
