package engine

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/mordilloSan/go-logger/logger"

	"github.com/soyunomas/dupescan/internal/entities"
	"github.com/soyunomas/dupescan/internal/hasher"
	"github.com/soyunomas/dupescan/internal/scanner"
)

type Options struct {
	MinSize  int64
	Excludes []string
	Ignore   *scanner.IgnoreList
	Symlinks scanner.SymlinkMode

	Algorithm   *hasher.Algorithm // nil = SHA-256
	ChunkSize   int               // <= 0 = hasher.DefaultChunkSize
	PreHash     bool
	PreHashSize int // <= 0 = hasher.PreHashSize
	Workers     int // <= 0 = runtime.NumCPU()
}

type Stats struct {
	TotalFilesScanned int64
	DirsScanned       int
	Skipped           int
	Candidates        int   // archivos en grupos de tamaño con 2+ miembros
	PreHashed         int   // archivos leídos en el pre-hash
	FullHashed        int   // archivos con hash completo
	BytesHashed       int64 // bytes leídos en la fase de hash completo
	Groups            []*entities.DuplicateGroup
	DuplicatesCount   int64
	Faults            []*entities.Fault
	Duration          time.Duration
}

// Resolution es el resultado de Resolve sobre una lista de archivos ya
// recorrida.
type Resolution struct {
	Groups      []*entities.DuplicateGroup
	Faults      []*entities.Fault
	Candidates  int
	PreHashed   int
	FullHashed  int
	BytesHashed int64
}

type Runner struct {
	opts   Options
	hasher *hasher.Hasher
}

func New(opts Options) *Runner {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.PreHashSize <= 0 {
		opts.PreHashSize = hasher.PreHashSize
	}
	return &Runner{
		opts:   opts,
		hasher: hasher.New(opts.Algorithm, opts.ChunkSize),
	}
}

// Run recorre root y resuelve los duplicados. Solo devuelve error si la raíz
// no es accesible o si ctx se cancela.
func (r *Runner) Run(ctx context.Context, rootDir string) (*Stats, error) {
	start := time.Now()

	// --- PASO 1: SCANNER ---
	logger.Infof("🔍 Fase 1: Escaneando %s...", rootDir)
	sc := scanner.New(scanner.Config{
		MinSize:  r.opts.MinSize,
		Excludes: r.opts.Excludes,
		Ignore:   r.opts.Ignore,
		Symlinks: r.opts.Symlinks,
	})

	scanned, err := sc.Scan(ctx, rootDir)
	if err != nil {
		return nil, fmt.Errorf("fallo en scanner: %w", err)
	}
	logger.Infof("   -> %d archivos en %d directorios (%d omitidos).", len(scanned.Files), scanned.Dirs, scanned.Skipped)

	res, err := r.Resolve(ctx, scanned.Files)
	if err != nil {
		return nil, err
	}

	var dupesCount int64
	for _, group := range res.Groups {
		dupesCount += int64(len(group.Files) - 1)
	}

	faults := make([]*entities.Fault, 0, len(scanned.Faults)+len(res.Faults))
	faults = append(faults, scanned.Faults...)
	faults = append(faults, res.Faults...)

	return &Stats{
		TotalFilesScanned: int64(len(scanned.Files)),
		DirsScanned:       scanned.Dirs,
		Skipped:           scanned.Skipped,
		Candidates:        res.Candidates,
		PreHashed:         res.PreHashed,
		FullHashed:        res.FullHashed,
		BytesHashed:       res.BytesHashed,
		Groups:            res.Groups,
		DuplicatesCount:   dupesCount,
		Faults:            faults,
		Duration:          time.Since(start),
	}, nil
}

// Resolve agrupa files por tamaño y confirma los duplicados por contenido.
// El orden de files (el del recorrido) se conserva dentro de cada grupo y
// los grupos salen ordenados por tamaño y primera ruta.
func (r *Runner) Resolve(ctx context.Context, files []*entities.FileRecord) (*Resolution, error) {
	res := &Resolution{}

	// --- PASO 2: AGRUPAR POR TAMAÑO ---
	buckets := bucketBySize(files)
	for _, b := range buckets {
		res.Candidates += len(b)
	}
	logger.Infof("🔍 Fase 2: %d candidatos por tamaño en %d grupos.", res.Candidates, len(buckets))

	// --- PASO 3: PRE-HASHING ---
	if r.opts.PreHash && len(buckets) > 0 {
		logger.Infof("🔍 Fase 3: Pre-Hashing (%s)...", formatBlock(r.opts.PreHashSize))
		var err error
		buckets, err = r.preHash(ctx, buckets, res)
		if err != nil {
			return nil, err
		}
		logger.Infof("   -> %d candidatos tras Pre-Hash.", countFiles(buckets))
	}

	// --- PASO 4: HASH COMPLETO ---
	logger.Infof("🔍 Fase 4: Hashing completo (%s)...", r.hasher.Algorithm().Name)
	groups, err := r.fullHash(ctx, buckets, res)
	if err != nil {
		return nil, err
	}

	// --- PASO 5: ORDENAR ---
	idx := newGroupIndex()
	for _, g := range groups {
		idx.Add(g)
	}
	res.Groups = idx.Groups()
	logger.Infof("   -> %d grupos de duplicados (%d copias redundantes).", idx.Len(), idx.Redundant())

	return res, nil
}

// bucketBySize devuelve, en orden de primera aparición, los grupos de
// tamaño con al menos dos archivos. El resto no se lee nunca.
func bucketBySize(files []*entities.FileRecord) [][]*entities.FileRecord {
	bySize := make(map[uint64]*entities.FileGroup)
	var order []uint64

	for _, f := range files {
		group, ok := bySize[f.Size]
		if !ok {
			group = &entities.FileGroup{}
			bySize[f.Size] = group
			order = append(order, f.Size)
		}
		group.Add(f)
	}

	var buckets [][]*entities.FileRecord
	for _, size := range order {
		group := bySize[size]
		if group.Count < 2 {
			continue
		}
		logger.Debugf("Comparando %d archivo(s) de tamaño %d", group.Count, size)
		buckets = append(buckets, group.Files)
	}
	return buckets
}

// preHash divide cada grupo de tamaño por el xxhash del primer bloque.
// Solo elimina archivos que no pueden ser duplicados.
func (r *Runner) preHash(ctx context.Context, buckets [][]*entities.FileRecord, res *Resolution) ([][]*entities.FileRecord, error) {
	blockSize := r.opts.PreHashSize
	outcomes, err := dispatch(ctx, r.opts.Workers, buckets, func(_ context.Context, f *entities.FileRecord) (uint64, error) {
		if f.Size == 0 {
			return 0, nil
		}
		return hasher.HashFirstBlock(f.Path, blockSize)
	})
	if err != nil {
		return nil, err
	}

	var next [][]*entities.FileRecord
	for b, bucket := range buckets {
		subs := make(map[uint64][]*entities.FileRecord)
		var order []uint64

		for i, f := range bucket {
			out := outcomes[b][i]
			if out.err != nil {
				res.Faults = append(res.Faults, r.hashFault(f.Path, out.err))
				continue
			}
			if f.Size > 0 {
				res.PreHashed++
			}
			if _, ok := subs[out.value]; !ok {
				order = append(order, out.value)
			}
			subs[out.value] = append(subs[out.value], f)
		}

		for _, key := range order {
			if len(subs[key]) > 1 {
				next = append(next, subs[key])
			}
		}
	}
	return next, nil
}

type fullDigest struct {
	digest entities.Digest
	read   int64
}

// fullHash calcula el digest de cada candidato y agrupa por digest dentro
// de cada grupo de tamaño.
func (r *Runner) fullHash(ctx context.Context, buckets [][]*entities.FileRecord, res *Resolution) ([]*entities.DuplicateGroup, error) {
	outcomes, err := dispatch(ctx, r.opts.Workers, buckets, func(ctx context.Context, f *entities.FileRecord) (fullDigest, error) {
		d, n, err := r.hasher.HashFile(ctx, f.Path, int64(f.Size))
		return fullDigest{digest: d, read: n}, err
	})
	if err != nil {
		return nil, err
	}

	var groups []*entities.DuplicateGroup
	for b, bucket := range buckets {
		byDigest := make(map[entities.Digest]*entities.DuplicateGroup)
		var order []entities.Digest

		for i, f := range bucket {
			out := outcomes[b][i]
			res.BytesHashed += out.value.read
			if out.err != nil {
				res.Faults = append(res.Faults, r.hashFault(f.Path, out.err))
				continue
			}
			res.FullHashed++

			// El archivo cambió después del recorrido: su digest no
			// corresponde al tamaño del grupo.
			if uint64(out.value.read) != f.Size {
				err := fmt.Errorf("el tamaño cambió durante el escaneo: esperado %d, leídos %d", f.Size, out.value.read)
				res.Faults = append(res.Faults, r.hashFault(f.Path, err))
				continue
			}

			g, ok := byDigest[out.value.digest]
			if !ok {
				g = &entities.DuplicateGroup{Size: f.Size, Digest: out.value.digest}
				byDigest[out.value.digest] = g
				order = append(order, out.value.digest)
			}
			g.Files = append(g.Files, f)
		}

		for _, d := range order {
			if g := byDigest[d]; len(g.Files) > 1 {
				groups = append(groups, g)
			}
		}
	}
	return groups, nil
}

func (r *Runner) hashFault(path string, err error) *entities.Fault {
	f := entities.NewFault(entities.HashFailure, path, err)
	logger.Warnf("%v", f)
	return f
}

func countFiles(buckets [][]*entities.FileRecord) int {
	n := 0
	for _, b := range buckets {
		n += len(b)
	}
	return n
}

func formatBlock(n int) string {
	if n%1024 == 0 {
		return fmt.Sprintf("%dKB check", n/1024)
	}
	return fmt.Sprintf("%dB check", n)
}
