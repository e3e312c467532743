package engine

import (
	"fmt"
	"strings"

	zcsl "github.com/mattkeenan/zerocopyskiplist"

	"github.com/soyunomas/dupescan/internal/entities"
)

const indexLevels = 16

// groupKey ordena los grupos por tamaño y luego por la primera ruta: el
// tamaño va con ceros a la izquierda para que el orden lexicográfico
// coincida con el numérico. Dos grupos nunca comparten primera ruta.
func groupKey(size uint64, first string) string {
	return fmt.Sprintf("%020d\x00%s", size, first)
}

// groupIndex mantiene los grupos ordenados a medida que se insertan.
// El contexto de cada nodo guarda el número de copias redundantes.
type groupIndex struct {
	list *zcsl.ZeroCopySkiplist[entities.DuplicateGroup, string, int]
}

func newGroupIndex() *groupIndex {
	getKey := func(g *entities.DuplicateGroup) string {
		var first string
		if len(g.Files) > 0 {
			first = g.Files[0].Path
		}
		return groupKey(g.Size, first)
	}
	getSize := func(g *entities.DuplicateGroup) int {
		return len(g.Files)
	}

	return &groupIndex{
		list: zcsl.MakeZeroCopySkiplist[entities.DuplicateGroup, string, int](
			indexLevels,
			getKey,
			getSize,
			strings.Compare,
		),
	}
}

// Add inserta g.
func (gi *groupIndex) Add(g *entities.DuplicateGroup) bool {
	return gi.list.Insert(g, len(g.Files)-1)
}

func (gi *groupIndex) Len() int {
	return gi.list.Length()
}

// Redundant suma las copias sobrantes de todos los grupos.
func (gi *groupIndex) Redundant() int {
	total := 0
	for n := gi.list.First(); n != nil; n = n.Next() {
		total += n.Context()
	}
	return total
}

// Groups devuelve los grupos en orden.
func (gi *groupIndex) Groups() []*entities.DuplicateGroup {
	out := make([]*entities.DuplicateGroup, 0, gi.list.Length())
	for n := gi.list.First(); n != nil; n = n.Next() {
		out = append(out, n.Item())
	}
	return out
}
