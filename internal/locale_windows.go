//go:build windows

package internal

import (
	"syscall"
	"unsafe"
)

var (
	kernel32                     = syscall.NewLazyDLL("kernel32.dll")
	procGetUserDefaultLocaleName = kernel32.NewProc("GetUserDefaultLocaleName")
)

// localeNameMaxLength is LOCALE_NAME_MAX_LENGTH
const localeNameMaxLength = 85

// detectSystemLocale checks the POSIX variables first (set under WSL and in
// tests), then asks the user's regional settings.
func detectSystemLocale() string {
	if loc := localeFromEnv("LC_MONETARY", "LC_ALL", "LANG"); loc != "" {
		return loc
	}
	if skipSystemLocale {
		return ""
	}

	buf := make([]uint16, localeNameMaxLength)
	ret, _, _ := procGetUserDefaultLocaleName.Call(uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	if ret == 0 {
		return ""
	}
	return syscall.UTF16ToString(buf)
}
