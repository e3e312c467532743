package hasher

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"

	"github.com/soyunomas/dupescan/internal/entities"
)

// DefaultChunkSize optimiza la lectura del disco. Cualquier tamaño positivo
// produce el mismo digest.
const DefaultChunkSize = 64 * 1024

// PreHashSize define cuánto leemos para la prueba rápida (4KB)
const PreHashSize = 4 * 1024

// Algorithm describe una función de hash criptográfica de 32 bytes.
type Algorithm struct {
	Name    string
	NewFunc func() hash.Hash
}

var algorithms = map[string]*Algorithm{
	"sha256": {
		Name:    "sha256",
		NewFunc: sha256.New,
	},
	"sha3-256": {
		Name:    "sha3-256",
		NewFunc: sha3.New256,
	},
	"blake2b-256": {
		Name: "blake2b-256",
		NewFunc: func() hash.Hash {
			// sin clave New256 no puede fallar
			h, _ := blake2b.New256(nil)
			return h
		},
	},
}

// Lookup devuelve el algoritmo por nombre (sin distinguir mayúsculas).
func Lookup(name string) (*Algorithm, error) {
	algo, ok := algorithms[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("algoritmo de hash no soportado: %s (soportados: %s)", name, strings.Join(Names(), ", "))
	}
	return algo, nil
}

// Default devuelve SHA-256.
func Default() *Algorithm {
	return algorithms["sha256"]
}

// Names lista los algoritmos disponibles en orden alfabético.
func Names() []string {
	names := make([]string, 0, len(algorithms))
	for n := range algorithms {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// hashPool para reutilizar el estado del digest del pre-hash
var hashPool = sync.Pool{
	New: func() any {
		return xxhash.New()
	},
}

// Hasher calcula digests completos con un algoritmo y tamaño de bloque fijos.
// Es seguro usarlo desde varias goroutines.
type Hasher struct {
	algo       *Algorithm
	chunkSize  int
	bufferPool sync.Pool
	digestPool sync.Pool
}

// New crea un Hasher. chunkSize <= 0 usa DefaultChunkSize.
func New(algo *Algorithm, chunkSize int) *Hasher {
	if algo == nil {
		algo = Default()
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	h := &Hasher{algo: algo, chunkSize: chunkSize}
	h.bufferPool.New = func() any {
		b := make([]byte, chunkSize)
		return &b
	}
	h.digestPool.New = func() any {
		return algo.NewFunc()
	}
	return h
}

// Algorithm devuelve el algoritmo configurado.
func (h *Hasher) Algorithm() *Algorithm {
	return h.algo
}

// HashFile calcula el digest del contenido completo de path leyendo en
// bloques. size es el tamaño registrado en el escaneo: nunca se leen más de
// size+1 bytes, así que un archivo que creció se detecta sin leerlo entero.
// size < 0 lee hasta EOF. Devuelve también los bytes leídos. El archivo se
// cierra antes de retornar.
//
// Cancelar ctx interrumpe una lectura bloqueada en archivos que admiten
// plazos (pipes, FIFOs); en ese caso se devuelve ctx.Err().
func (h *Hasher) HashFile(ctx context.Context, path string, size int64) (entities.Digest, int64, error) {
	var digest entities.Digest

	file, err := os.Open(path)
	if err != nil {
		return digest, 0, fmt.Errorf("no se pudo abrir: %w", err)
	}
	defer file.Close()

	d := h.digestPool.Get().(hash.Hash)
	d.Reset()
	defer h.digestPool.Put(d)

	// Archivos de /proc como kmsg declaran tamaño 0 y bloquean al leerlos.
	// Si fstat confirma el 0, el digest es el del contenido vacío.
	if size == 0 {
		info, err := file.Stat()
		if err != nil {
			return digest, 0, fmt.Errorf("error leyendo: %w", err)
		}
		if info.Size() == 0 {
			copy(digest[:], d.Sum(nil))
			return digest, 0, nil
		}
	}

	adviseSequential(file)

	stop := context.AfterFunc(ctx, func() {
		_ = file.SetReadDeadline(time.Now())
	})
	defer stop()

	var r io.Reader = file
	if size >= 0 {
		r = io.LimitReader(file, size+1)
	}

	bufPtr := h.bufferPool.Get().(*[]byte)
	buf := *bufPtr
	defer h.bufferPool.Put(bufPtr)

	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return digest, total, err
		}

		n, err := r.Read(buf)
		if n > 0 {
			_, _ = d.Write(buf[:n])
			total += int64(n)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return digest, total, ctxErr
			}
			return digest, total, fmt.Errorf("error leyendo: %w", err)
		}
	}

	copy(digest[:], d.Sum(nil))
	return digest, total, nil
}

// HashFirstBlock calcula xxhash64 de los primeros n bytes (o menos si el
// archivo es más corto). Solo sirve para descartar candidatos.
func HashFirstBlock(path string, n int) (uint64, error) {
	if n <= 0 {
		n = PreHashSize
	}

	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("no se pudo abrir: %w", err)
	}
	defer file.Close()

	h := hashPool.Get().(*xxhash.Digest)
	h.Reset()
	defer hashPool.Put(h)

	// Alloc simple: el bloque es pequeño y evita locking del Pool global.
	buf := make([]byte, n)
	read, err := io.ReadFull(file, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return 0, fmt.Errorf("error leyendo: %w", err)
	}

	_, _ = h.Write(buf[:read])

	return h.Sum64(), nil
}
