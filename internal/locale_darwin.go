//go:build darwin

package internal

import (
	"os/exec"
	"strings"
)

// detectSystemLocale prefers a locale exported in the shell and falls back to
// the AppleLocale user default (already in "en_NZ" form).
func detectSystemLocale() string {
	if loc := localeFromEnv("LC_MONETARY", "LC_ALL", "LANG"); loc != "" {
		return loc
	}
	if skipSystemLocale {
		return ""
	}

	out, err := exec.Command("defaults", "read", "-g", "AppleLocale").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
