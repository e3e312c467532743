package utils

import (
	"fmt"
	"strings"

	units "github.com/docker/go-units"
)

// ByteCountDecimal formatea bytes con unidades SI (kB, MB, GB...).
func ByteCountDecimal(n uint64) string {
	return units.HumanSize(float64(n))
}

// ParseHumanSize interpreta tamaños como "64K", "2M", "1G" o "4096".
// Los sufijos son binarios (K = 1024) y se aceptan KB y KiB.
func ParseHumanSize(sizeStr string) (int64, error) {
	s := strings.TrimSpace(sizeStr)
	if s == "" {
		return 0, fmt.Errorf("tamaño vacío")
	}
	n, err := units.RAMInBytes(s)
	if err != nil {
		return 0, fmt.Errorf("tamaño inválido %q: %w", sizeStr, err)
	}
	return n, nil
}
