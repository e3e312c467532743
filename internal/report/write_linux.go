//go:build linux

package report

import (
	"fmt"
	"os"
	"syscall"

	"github.com/google/vectorio"
)

// Límite de iovecs por llamada a writev en Linux (UIO_MAXIOV).
const iovMax = 1024

// WriteFile escribe el reporte en path con writev: un iovec por bloque.
func WriteFile(path string, r *Report, format Format) error {
	chunks, err := renderChunks(r, format)
	if err != nil {
		return err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("no se pudo crear %s: %w", path, err)
	}
	defer file.Close()

	iovecs := make([]syscall.Iovec, 0, len(chunks))
	expected := 0
	for _, c := range chunks {
		if len(c) == 0 {
			continue
		}
		iov := syscall.Iovec{Base: &c[0]}
		iov.SetLen(len(c))
		iovecs = append(iovecs, iov)
		expected += len(c)
	}

	written := 0
	for offset := 0; offset < len(iovecs); offset += iovMax {
		end := offset + iovMax
		if end > len(iovecs) {
			end = len(iovecs)
		}
		nw, err := vectorio.WritevRaw(uintptr(file.Fd()), iovecs[offset:end])
		if err != nil {
			return fmt.Errorf("error escribiendo %s: %w", path, err)
		}
		written += nw
	}
	if written != expected {
		return fmt.Errorf("escritura incompleta en %s: %d de %d bytes", path, written, expected)
	}

	return file.Close()
}
