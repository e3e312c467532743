package engine

import (
	"context"
	"sync"

	"github.com/mordilloSan/go-logger/logger"

	"github.com/soyunomas/dupescan/internal/entities"
)

type job struct {
	bucket int
	index  int
	file   *entities.FileRecord
}

type outcome[T any] struct {
	value T
	err   error
}

type result[T any] struct {
	job
	outcome[T]
}

// dispatch ejecuta work sobre cada archivo de buckets con un pool de
// workers. Un único colector escribe los resultados en la posición
// [bucket][index] del archivo, así el orden no depende de qué worker
// termina primero.
func dispatch[T any](ctx context.Context, workers int, buckets [][]*entities.FileRecord, work func(context.Context, *entities.FileRecord) (T, error)) ([][]outcome[T], error) {
	total := countFiles(buckets)
	outcomes := make([][]outcome[T], len(buckets))
	for b, bucket := range buckets {
		outcomes[b] = make([]outcome[T], len(bucket))
	}
	if total == 0 {
		return outcomes, nil
	}
	if workers > total {
		workers = total
	}

	// Buffer completo: los workers nunca se bloquean esperando al colector.
	jobs := make(chan job, total)
	results := make(chan result[T], total)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				if ctx.Err() != nil {
					results <- result[T]{job: j, outcome: outcome[T]{err: ctx.Err()}}
					continue
				}
				v, err := work(ctx, j.file)
				results <- result[T]{job: j, outcome: outcome[T]{value: v, err: err}}
			}
		}()
	}

	for b, bucket := range buckets {
		for i, f := range bucket {
			jobs <- job{bucket: b, index: i, file: f}
		}
	}
	close(jobs)

	// Monitor de cierre
	go func() {
		wg.Wait()
		close(results)
	}()

	processed := 0
	for res := range results {
		processed++
		if processed%500 == 0 {
			logger.Debugf("   ... %d/%d archivos procesados", processed, total)
		}
		outcomes[res.bucket][res.index] = res.outcome
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return outcomes, nil
}
