package scanner

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// IgnoreList contiene expresiones regulares que se comparan contra la ruta
// relativa a la raíz, siempre con separadores '/'. Los directorios se
// comparan con una '/' final, así "^build/" descarta la carpeta entera.
type IgnoreList struct {
	patterns []*regexp.Regexp
}

// LoadIgnoreFile lee un archivo de patrones: uno por línea, '#' para
// comentarios, líneas vacías ignoradas.
func LoadIgnoreFile(path string) (*IgnoreList, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("no se pudo abrir el archivo de exclusiones: %w", err)
	}
	defer file.Close()

	list, err := ParseIgnore(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return list, nil
}

// ParseIgnore lee patrones desde r con el mismo formato que LoadIgnoreFile.
func ParseIgnore(r io.Reader) (*IgnoreList, error) {
	list := &IgnoreList{}
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := list.AddPattern(line); err != nil {
			return nil, fmt.Errorf("línea %d: %w", lineNum, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error leyendo patrones: %w", err)
	}
	return list, nil
}

// AddPattern compila y agrega un patrón.
func (il *IgnoreList) AddPattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("patrón inválido %s: %w", pattern, err)
	}
	il.patterns = append(il.patterns, re)
	return nil
}

// Len devuelve el número de patrones cargados.
func (il *IgnoreList) Len() int {
	if il == nil {
		return 0
	}
	return len(il.patterns)
}

// ShouldIgnore indica si la ruta relativa coincide con algún patrón.
func (il *IgnoreList) ShouldIgnore(relativePath string) bool {
	if il == nil {
		return false
	}
	normalised := filepath.ToSlash(relativePath)
	for _, p := range il.patterns {
		if p.MatchString(normalised) {
			return true
		}
	}
	return false
}
