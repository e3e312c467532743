//go:build windows

package main

import "os"

// defaultRoot devuelve la unidad del sistema, normalmente C:\.
func defaultRoot() string {
	drive := os.Getenv("SystemDrive")
	if drive == "" {
		drive = "C:"
	}
	return drive + `\`
}
