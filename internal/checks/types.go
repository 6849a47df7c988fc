package checks

import "fmt"

// DiskSpaceCheck represents disk space information
type DiskSpaceCheck struct {
	Path           string
	TotalBytes     uint64
	AvailableBytes uint64
	UsedPercent    float64
	Warning        bool
	Critical       bool
}

func (c *DiskSpaceCheck) evaluate() {
	if c.TotalBytes == 0 {
		return
	}
	used := c.TotalBytes - c.AvailableBytes
	c.UsedPercent = float64(used) / float64(c.TotalBytes) * 100
	c.Critical = c.UsedPercent >= 95
	c.Warning = c.UsedPercent >= 80 && !c.Critical
}

// String renders the check for a log line.
func (c *DiskSpaceCheck) String() string {
	return fmt.Sprintf("%s: %s free of %s (%.1f%% used)",
		c.Path, FormatBytes(c.AvailableBytes), FormatBytes(c.TotalBytes), c.UsedPercent)
}

// FormatBytes formats bytes to human-readable format
func FormatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
