//go:build !linux

package report

import (
	"bufio"
	"fmt"
	"os"
)

// WriteFile escribe el reporte en path.
func WriteFile(path string, r *Report, format Format) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("no se pudo crear %s: %w", path, err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	if err := Render(w, r, format); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("error escribiendo %s: %w", path, err)
	}
	return file.Close()
}
