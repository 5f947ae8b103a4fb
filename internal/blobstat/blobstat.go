// Package blobstat measures a set of blob payloads concurrently and
// returns their sizes keyed by id. Its caller is cmd/gitrewrite-analyze;
// the rewrite engine does not consult it (max_blob_size is checked
// against each blob's own length as the engine processes it).
//
// Concurrency is deliberately confined to this package: spec.md §5
// requires the rewrite engine itself to stay single-threaded
// cooperative, so the worker pool lives here, not in internal/engine —
// the same "concurrent prepare, sequential apply" split main.go's
// SaveBlob uses a pond.WorkerPool for (concurrent disk writes) while
// its GitParse read loop stays single-threaded.
package blobstat

import (
	"sync"

	"github.com/alitto/pond"
)

// Sizes maps an original object id to its payload size in bytes.
type Sizes struct {
	mu sync.Mutex
	m  map[string]int64
}

func newSizes() *Sizes {
	return &Sizes{m: make(map[string]int64)}
}

func (s *Sizes) set(id string, n int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[id] = n
}

// Get returns the recorded size for id, or (0, false) if unknown.
func (s *Sizes) Get(id string) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.m[id]
	return n, ok
}

// Blob is one spooled payload to measure.
type Blob struct {
	OrigID string
	Data   []byte
}

// Scan measures every blob concurrently using a bounded worker pool,
// mirroring main.go's pond.New(pondSize, 0, pond.MinWorkers(10))
// sizing convention, and returns the completed size index.
func Scan(blobs []Blob, poolSize int) *Sizes {
	if poolSize <= 0 {
		poolSize = 10
	}
	sizes := newSizes()
	pool := pond.New(poolSize, 0, pond.MinWorkers(10))

	for _, b := range blobs {
		b := b
		pool.Submit(func() {
			sizes.set(b.OrigID, int64(len(b.Data)))
		})
	}
	pool.StopAndWait()
	return sizes
}
