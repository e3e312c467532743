package entities

import (
	"encoding/hex"
	"fmt"
	"time"
)

// DigestSize es el tamaño fijo de un digest de contenido (256 bits).
const DigestSize = 32

// FileRecord representa un archivo regular encontrado durante el recorrido.
// No se modifica después de crearse.
type FileRecord struct {
	Path     string    `json:"path" yaml:"path"`
	Size     uint64    `json:"size_bytes" yaml:"size_bytes"`
	ModTime  time.Time `json:"mod_time" yaml:"mod_time"`
	DeviceID uint64    `json:"device_id" yaml:"device_id"`
	Inode    uint64    `json:"inode" yaml:"inode"`
}

// FileGroup representa un conjunto de archivos que comparten criterios
// (mismo tamaño, mismo pre-hash o mismo digest).
type FileGroup struct {
	Count int64         `json:"count"`
	Files []*FileRecord `json:"files"`
}

// Add agrega un archivo al grupo
func (fg *FileGroup) Add(f *FileRecord) {
	fg.Files = append(fg.Files, f)
	fg.Count++
}

// Digest es el hash criptográfico del contenido completo de un archivo.
type Digest [DigestSize]byte

// String devuelve el digest en hexadecimal (minúsculas).
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// MarshalText permite serializar el digest como texto hex en JSON/YAML.
func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// ParseDigest convierte 64 caracteres hex en un Digest.
func ParseDigest(s string) (Digest, error) {
	var d Digest
	raw, err := hex.DecodeString(s)
	if err != nil {
		return d, fmt.Errorf("digest inválido %q: %w", s, err)
	}
	if len(raw) != DigestSize {
		return d, fmt.Errorf("digest inválido %q: %d bytes, se esperaban %d", s, len(raw), DigestSize)
	}
	copy(d[:], raw)
	return d, nil
}

// DuplicateGroup es un conjunto de 2 o más archivos con el mismo tamaño
// y el mismo digest.
type DuplicateGroup struct {
	Size   uint64        `json:"size_bytes"`
	Digest Digest        `json:"digest"`
	Files  []*FileRecord `json:"files"`
}

// Paths devuelve las rutas del grupo en su orden actual.
func (g *DuplicateGroup) Paths() []string {
	paths := make([]string, len(g.Files))
	for i, f := range g.Files {
		paths[i] = f.Path
	}
	return paths
}
