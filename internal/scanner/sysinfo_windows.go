//go:build windows

package scanner

import "io/fs"

// En Windows FileInfo no expone inodos; sin ellos no se detectan hardlinks.
func getSysInfo(fs.FileInfo) (uint64, uint64) {
	return 0, 0
}
