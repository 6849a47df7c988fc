//go:build !(linux || darwin || freebsd)

package checks

import (
	"runtime"

	"github.com/pkg/errors"
)

// CheckDiskSpace is only implemented where statfs is.
func CheckDiskSpace(path string) (*DiskSpaceCheck, error) {
	return nil, errors.Errorf("disk space check of %s is not supported on %s", path, runtime.GOOS)
}
