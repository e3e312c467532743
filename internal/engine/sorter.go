package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/soyunomas/dupescan/internal/entities"
)

// Definimos las estrategias de conservación disponibles
type KeepStrategy int

const (
	KeepShortestPath KeepStrategy = iota // Default
	KeepLongestPath
	KeepOldest
	KeepNewest
)

var strategyNames = map[KeepStrategy]string{
	KeepShortestPath: "shortest",
	KeepLongestPath:  "longest",
	KeepOldest:       "oldest",
	KeepNewest:       "newest",
}

func (s KeepStrategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return fmt.Sprintf("KeepStrategy(%d)", int(s))
}

// ParseKeepStrategy traduce el nombre usado en config y CLI.
func ParseKeepStrategy(name string) (KeepStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "shortest":
		return KeepShortestPath, nil
	case "longest":
		return KeepLongestPath, nil
	case "oldest":
		return KeepOldest, nil
	case "newest":
		return KeepNewest, nil
	default:
		return 0, fmt.Errorf("estrategia no válida: %s (usa shortest, longest, oldest o newest)", name)
	}
}

// OrderForKeep devuelve una copia de files ordenada según la estrategia:
// el archivo en la posición [0] es el "Keeper" (Original). files no se
// modifica, conserva el orden del recorrido.
func OrderForKeep(files []*entities.FileRecord, strategy KeepStrategy) []*entities.FileRecord {
	ordered := make([]*entities.FileRecord, len(files))
	copy(ordered, files)

	// Si la función retorna TRUE, 'i' se coloca antes que 'j' (índice menor).
	sort.SliceStable(ordered, func(i, j int) bool {
		f1 := ordered[i]
		f2 := ordered[j]

		switch strategy {
		case KeepOldest:
			// [0] debe ser el más viejo (Fecha menor)
			if !f1.ModTime.Equal(f2.ModTime) {
				return f1.ModTime.Before(f2.ModTime)
			}

		case KeepNewest:
			// [0] debe ser el más nuevo (Fecha mayor)
			if !f1.ModTime.Equal(f2.ModTime) {
				return f1.ModTime.After(f2.ModTime)
			}
		}

		// --- CRITERIOS DE DESEMPATE (Tie-Breakers) ---
		// Longitud de ruta: criterio principal en shortest/longest,
		// desempate en oldest/newest.
		if len(f1.Path) != len(f2.Path) {
			if strategy == KeepLongestPath {
				return len(f1.Path) > len(f2.Path)
			}
			return len(f1.Path) < len(f2.Path)
		}

		// Alfabético (último recurso)
		return f1.Path < f2.Path
	})
	return ordered
}
