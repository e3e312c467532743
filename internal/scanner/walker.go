package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mordilloSan/go-logger/logger"

	"github.com/soyunomas/dupescan/internal/entities"
)

// SymlinkMode decide qué hacer con los enlaces simbólicos.
type SymlinkMode string

const (
	// SymlinkSkip ignora todos los enlaces (por defecto).
	SymlinkSkip SymlinkMode = "skip"
	// SymlinkFiles registra enlaces a archivos regulares con el tamaño del destino.
	SymlinkFiles SymlinkMode = "files"
	// SymlinkFollow además entra en directorios enlazados.
	SymlinkFollow SymlinkMode = "follow"
)

// ParseSymlinkMode valida el nombre de un modo.
func ParseSymlinkMode(s string) (SymlinkMode, error) {
	switch m := SymlinkMode(strings.ToLower(strings.TrimSpace(s))); m {
	case SymlinkSkip, SymlinkFiles, SymlinkFollow:
		return m, nil
	case "":
		return SymlinkSkip, nil
	default:
		return "", fmt.Errorf("modo de symlinks no soportado: %s (soportados: skip, files, follow)", s)
	}
}

// Config define las reglas para el escaneo.
type Config struct {
	MinSize  int64       // Tamaño mínimo en bytes para considerar
	Excludes []string    // Nombres de carpetas a ignorar
	Ignore   *IgnoreList // Patrones regex sobre la ruta relativa (opcional)
	Symlinks SymlinkMode
}

// Result es la salida del recorrido: archivos en orden de visita y fallos
// recuperables.
type Result struct {
	Files   []*entities.FileRecord
	Faults  []*entities.Fault
	Dirs    int
	Skipped int
}

// FileScanner encapsula la lógica de recorrido del sistema de archivos.
type FileScanner struct {
	cfg        Config
	excludeMap map[string]struct{} // Optimización O(1)
}

// New crea una nueva instancia del escáner con configuración.
func New(cfg Config) *FileScanner {
	exMap := make(map[string]struct{}, len(cfg.Excludes))
	for _, e := range cfg.Excludes {
		if e = strings.TrimSpace(e); e != "" {
			exMap[e] = struct{}{}
		}
	}
	if cfg.Symlinks == "" {
		cfg.Symlinks = SymlinkSkip
	}

	return &FileScanner{
		cfg:        cfg,
		excludeMap: exMap,
	}
}

// walk es el estado de un único recorrido. La cola es FIFO (BFS) y nadie
// fuera de Scan la ve.
type walk struct {
	root    string
	queue   []string
	visited map[string]struct{} // solo en SymlinkFollow
	res     *Result
}

// Scan recorre rootDir en anchura y devuelve todos los archivos regulares.
// Solo falla si la raíz no se puede listar (RootUnavailable) o si ctx se
// cancela; cualquier otro error queda en Result.Faults.
func (s *FileScanner) Scan(ctx context.Context, rootDir string) (*Result, error) {
	root := filepath.Clean(rootDir)
	w := &walk{root: root, res: &Result{}}

	info, err := os.Stat(root)
	if err != nil {
		return nil, entities.NewFault(entities.RootUnavailable, root, err)
	}

	// Una raíz que es un archivo produce un único registro.
	if info.Mode().IsRegular() {
		s.emit(w, root, info)
		return w.res, nil
	}
	if !info.IsDir() {
		return nil, entities.NewFault(entities.RootUnavailable, root, fmt.Errorf("no es un directorio ni un archivo regular"))
	}

	// La raíz se lista aparte: si falla, el escaneo no tiene sentido.
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, entities.NewFault(entities.RootUnavailable, root, err)
	}
	if s.cfg.Symlinks == SymlinkFollow {
		w.visited = make(map[string]struct{})
		s.markVisited(w, root)
	}

	logger.Debugf("Escaneando %s", root)
	w.res.Dirs++
	s.visitEntries(w, root, entries)

	for len(w.queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		dir := w.queue[0]
		w.queue = w.queue[1:]

		if w.visited != nil && !s.markVisited(w, dir) {
			logger.Debugf("Directorio ya visitado, se omite: %s", dir)
			continue
		}

		logger.Debugf("Escaneando %s", dir)
		entries, err := os.ReadDir(dir)
		if err != nil {
			s.fault(w, dir, err)
			continue
		}
		w.res.Dirs++
		s.visitEntries(w, dir, entries)
	}

	return w.res, nil
}

// visitEntries procesa los hijos inmediatos de dir. os.ReadDir ya los
// devuelve ordenados por nombre, lo que hace el recorrido determinista.
func (s *FileScanner) visitEntries(w *walk, dir string, entries []fs.DirEntry) {
	for _, d := range entries {
		path := filepath.Join(dir, d.Name())
		mode := d.Type()

		switch {
		case mode.IsDir():
			if s.excludedDir(w, path, d.Name()) {
				continue
			}
			w.queue = append(w.queue, path)

		case mode.IsRegular():
			if s.ignored(w, path, false) {
				continue
			}
			info, err := d.Info()
			if err != nil {
				s.fault(w, path, err)
				continue
			}
			s.emit(w, path, info)

		case mode&fs.ModeSymlink != 0:
			s.visitSymlink(w, path, d.Name())

		default:
			// dispositivos, sockets, fifos...
			logger.Debugf("Tipo de archivo no soportado, se omite: %s (%s)", path, mode)
			w.res.Skipped++
		}
	}
}

func (s *FileScanner) visitSymlink(w *walk, path, name string) {
	if s.cfg.Symlinks == SymlinkSkip {
		logger.Debugf("Symlink omitido: %s", path)
		w.res.Skipped++
		return
	}

	target, err := os.Stat(path)
	if err != nil {
		// enlace roto o destino inaccesible
		s.fault(w, path, err)
		return
	}

	switch {
	case target.Mode().IsRegular():
		if s.ignored(w, path, false) {
			return
		}
		s.emit(w, path, target)
	case target.IsDir() && s.cfg.Symlinks == SymlinkFollow:
		if s.excludedDir(w, path, name) {
			return
		}
		w.queue = append(w.queue, path)
	default:
		w.res.Skipped++
	}
}

// markVisited registra la ruta real de dir; devuelve false si ya estaba.
func (s *FileScanner) markVisited(w *walk, dir string) bool {
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		resolved = dir
	}
	if _, seen := w.visited[resolved]; seen {
		return false
	}
	w.visited[resolved] = struct{}{}
	return true
}

func (s *FileScanner) excludedDir(w *walk, path, name string) bool {
	if _, ok := s.excludeMap[name]; ok {
		return true
	}
	return s.ignored(w, path, true)
}

func (s *FileScanner) ignored(w *walk, path string, isDir bool) bool {
	if s.cfg.Ignore == nil {
		return false
	}
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	if isDir {
		rel += string(filepath.Separator)
	}
	return s.cfg.Ignore.ShouldIgnore(rel)
}

func (s *FileScanner) emit(w *walk, path string, info fs.FileInfo) {
	if info.Size() < s.cfg.MinSize {
		return
	}

	devID, inode := getSysInfo(info)
	w.res.Files = append(w.res.Files, &entities.FileRecord{
		Path:     path,
		Size:     uint64(info.Size()),
		ModTime:  info.ModTime(),
		DeviceID: devID,
		Inode:    inode,
	})
}

func (s *FileScanner) fault(w *walk, path string, err error) {
	f := entities.NewFault(entities.EntryUnavailable, path, err)
	logger.Warnf("%v", f)
	w.res.Faults = append(w.res.Faults, f)
}
