//go:build !windows

package scanner

import (
	"io/fs"
	"syscall"
)

// getSysInfo extrae DeviceID e Inode de forma "segura".
func getSysInfo(info fs.FileInfo) (uint64, uint64) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, 0
	}
	return uint64(stat.Dev), uint64(stat.Ino)
}
