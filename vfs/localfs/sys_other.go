//go:build !unix

package localfs

import "os"

// checkCurrentProcessPermissions falls back to mode bits on platforms
// without access(2); this checks "does anyone have this permission" rather
// than the exact effective-user check POSIX access() gives.
func checkCurrentProcessPermissions(path string) (canRead, canWrite, canExec bool) {
	info, err := os.Stat(path)
	if err != nil {
		return false, false, false
	}
	perm := info.Mode().Perm()
	return perm&0o444 != 0, perm&0o222 != 0, perm&0o111 != 0
}

// fsyncFile falls back to the stdlib's Sync, which maps to FlushFileBuffers
// on Windows.
func fsyncFile(f *os.File) error {
	return f.Sync()
}
