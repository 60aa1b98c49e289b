// Package diskstat reports free/used space on a destination volume
// before a download starts, grounded on the teacher's StatsManager
// (GetDiskUsage) and its allocator's pre-flight disk-space check.
package diskstat

import (
	"fmt"
	"path/filepath"

	"github.com/shirou/gopsutil/v3/disk"
)

// Usage mirrors the teacher's DiskUsageInfo, in bytes rather than
// pre-converted GB so callers can format with humanize.
type Usage struct {
	Used    uint64
	Free    uint64
	Total   uint64
	Percent float64
}

// ForPath returns disk usage for the volume containing path.
func ForPath(path string) (Usage, error) {
	volume := filepath.VolumeName(path)
	if volume == "" {
		volume = "/"
	} else {
		volume += `\`
	}

	u, err := disk.Usage(volume)
	if err != nil {
		return Usage{}, err
	}
	return Usage{Used: u.Used, Free: u.Free, Total: u.Total, Percent: u.UsedPercent}, nil
}

// HasRoomFor reports whether the volume containing destDir has at least
// requiredBytes free, the pre-flight check a supervisor can run before
// admitting a download whose size is already known from probing.
func HasRoomFor(destDir string, requiredBytes int64) (bool, error) {
	u, err := ForPath(destDir)
	if err != nil {
		return false, fmt.Errorf("diskstat: %w", err)
	}
	return int64(u.Free) >= requiredBytes, nil
}
