package oracle

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"rbkoracle/internal/errs"
)

// ListDirectories returns the names of the directories directly under path.
func ListDirectories(path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, errs.Validation("cannot list mount path %s: %v", path, err)
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e.Name())
		}
	}
	return dirs, nil
}

// MountDirectory is the directory a files-only mount created.
type MountDirectory struct {
	Name string
	Path string
	// MountID is the live mount id embedded in the directory name
	// after the first underscore.
	MountID string
}

// NewMountDirectory finds the single directory present in after but not in
// before.
func NewMountDirectory(mountPath string, before, after []string) (MountDirectory, error) {
	var created []string
	for _, name := range after {
		if !slices.Contains(before, name) {
			created = append(created, name)
		}
	}

	switch len(created) {
	case 0:
		return MountDirectory{}, errs.NotFound("no new directory appeared in %s after the mount", mountPath)
	case 1:
	default:
		slices.Sort(created)
		return MountDirectory{}, errs.Ambiguous(created, "multiple directories were created in %s during the mount, the live mount directory cannot be determined", mountPath)
	}

	name := created[0]
	parts := strings.Split(name, "_")
	if len(parts) < 2 || parts[1] == "" {
		return MountDirectory{}, errs.Validation("mount directory %s does not carry a live mount id", name)
	}
	return MountDirectory{Name: name, Path: filepath.Join(mountPath, name), MountID: parts[1]}, nil
}
