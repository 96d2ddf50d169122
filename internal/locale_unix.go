//go:build !windows && !darwin

package internal

// detectSystemLocale reads the POSIX locale variables, most specific to money first.
// "C" and "POSIX" carry no region and are skipped.
func detectSystemLocale() string {
	return localeFromEnv("LC_MONETARY", "LC_ALL", "LANG")
}
