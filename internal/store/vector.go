package store

import (
	"bufio"
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"sync"

	"github.com/coder/hnsw"
	"github.com/natefinch/atomic"
)

// VectorHit is one nearest neighbour returned by the index.
type VectorHit struct {
	ID       string
	Distance float32
}

// vectorMeta is the gob-persisted ID mapping that accompanies the graph.
type vectorMeta struct {
	IDMap      map[string]uint64
	NextKey    uint64
	Dimensions int
}

// VectorIndex is an in-memory HNSW graph over chunk embeddings with
// string-ID mapping and on-disk persistence. Cosine distance throughout;
// similarity = 1 - distance.
type VectorIndex struct {
	mu    sync.RWMutex
	graph *hnsw.Graph[uint64]
	dims  int

	idMap   map[string]uint64
	keyMap  map[uint64]string
	nextKey uint64
}

// NewVectorIndex creates an empty index for vectors of the given width.
func NewVectorIndex(dims int) *VectorIndex {
	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = 16
	graph.EfSearch = 20
	graph.Ml = 0.25

	return &VectorIndex{
		graph:  graph,
		dims:   dims,
		idMap:  make(map[string]uint64),
		keyMap: make(map[uint64]string),
	}
}

// Add inserts or replaces the vector for id. Replacement is lazy: the old
// graph node is orphaned rather than deleted, which sidesteps coder/hnsw
// issues with removing the last node, and orphans never surface in results.
func (v *VectorIndex) Add(id string, vec []float32) error {
	if len(vec) != v.dims {
		return fmt.Errorf("vector dimension mismatch: want %d, got %d", v.dims, len(vec))
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if old, ok := v.idMap[id]; ok {
		delete(v.keyMap, old)
		delete(v.idMap, id)
	}

	key := v.nextKey
	v.nextKey++

	owned := make([]float32, len(vec))
	copy(owned, vec)

	v.graph.Add(hnsw.MakeNode(key, owned))
	v.idMap[id] = key
	v.keyMap[key] = id
	return nil
}

// Search returns up to k nearest neighbours of query, closest first.
// Orphaned nodes are filtered, so callers asking for k around an orphan may
// receive fewer hits; callers over-fetch anyway.
func (v *VectorIndex) Search(query []float32, k int) ([]VectorHit, error) {
	if len(query) != v.dims {
		return nil, fmt.Errorf("query dimension mismatch: want %d, got %d", v.dims, len(query))
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.graph.Len() == 0 {
		return []VectorHit{}, nil
	}

	nodes := v.graph.Search(query, k)
	hits := make([]VectorHit, 0, len(nodes))
	for _, node := range nodes {
		id, ok := v.keyMap[node.Key]
		if !ok {
			continue // orphaned by a replace
		}
		hits = append(hits, VectorHit{
			ID:       id,
			Distance: v.graph.Distance(query, node.Value),
		})
	}
	return hits, nil
}

// Contains reports whether id has a live vector.
func (v *VectorIndex) Contains(id string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	_, ok := v.idMap[id]
	return ok
}

// Count returns the number of live vectors.
func (v *VectorIndex) Count() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.idMap)
}

// Save persists the graph and ID mappings. Both files are written
// atomically so a crash mid-save leaves the previous index intact.
func (v *VectorIndex) Save(path string) error {
	v.mu.RLock()
	defer v.mu.RUnlock()

	var graphBuf bytes.Buffer
	if err := v.graph.Export(&graphBuf); err != nil {
		return fmt.Errorf("exporting vector graph: %w", err)
	}
	if err := atomic.WriteFile(path, &graphBuf); err != nil {
		return fmt.Errorf("writing vector graph: %w", err)
	}

	var metaBuf bytes.Buffer
	meta := vectorMeta{IDMap: v.idMap, NextKey: v.nextKey, Dimensions: v.dims}
	if err := gob.NewEncoder(&metaBuf).Encode(meta); err != nil {
		return fmt.Errorf("encoding vector metadata: %w", err)
	}
	if err := atomic.WriteFile(path+".meta", &metaBuf); err != nil {
		return fmt.Errorf("writing vector metadata: %w", err)
	}
	return nil
}

// Load restores a previously saved index. A missing file leaves the index
// empty and is not an error: first open of a fresh store.
func (v *VectorIndex) Load(path string) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("opening vector graph: %w", err)
	}
	defer f.Close()

	v.mu.Lock()
	defer v.mu.Unlock()

	// coder/hnsw Import requires an io.ByteReader.
	if err := v.graph.Import(bufio.NewReader(f)); err != nil {
		return fmt.Errorf("importing vector graph: %w", err)
	}

	mf, err := os.Open(path + ".meta")
	if err != nil {
		return fmt.Errorf("opening vector metadata: %w", err)
	}
	defer mf.Close()

	var meta vectorMeta
	if err := gob.NewDecoder(mf).Decode(&meta); err != nil {
		return fmt.Errorf("decoding vector metadata: %w", err)
	}
	if meta.Dimensions != v.dims {
		return fmt.Errorf("vector index dimension mismatch: index has %d, embedder has %d", meta.Dimensions, v.dims)
	}

	v.idMap = meta.IDMap
	v.nextKey = meta.NextKey
	v.keyMap = make(map[uint64]string, len(meta.IDMap))
	for id, key := range meta.IDMap {
		v.keyMap[key] = id
	}
	return nil
}
