//go:build unix

package localfs

import "golang.org/x/sys/unix"

// checkCurrentProcessPermissions reports what this process can do with
// path, using access(2) rather than inspecting mode bits directly so it
// accounts for the effective uid/gid, not just the owner bits.
func checkCurrentProcessPermissions(path string) (canRead, canWrite, canExec bool) {
	canRead = unix.Access(path, unix.R_OK) == nil
	canWrite = unix.Access(path, unix.W_OK) == nil
	canExec = unix.Access(path, unix.X_OK) == nil
	return
}
