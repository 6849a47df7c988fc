//go:build linux || darwin || freebsd

package checks

import (
	"path/filepath"
	"syscall"

	"github.com/pkg/errors"
)

// CheckDiskSpace reports the free space of the filesystem holding path.
func CheckDiskSpace(path string) (*DiskSpaceCheck, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	var stat syscall.Statfs_t
	if err := syscall.Statfs(absPath, &stat); err != nil {
		return nil, errors.Wrapf(err, "statfs %s", absPath)
	}

	check := &DiskSpaceCheck{
		Path:           absPath,
		TotalBytes:     stat.Blocks * uint64(stat.Bsize),
		AvailableBytes: stat.Bavail * uint64(stat.Bsize),
	}
	check.evaluate()
	return check, nil
}
