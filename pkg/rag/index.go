package rag

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"sort"
)

const indexFile = "index.json"

// Embedder turns texts into embedding vectors. Installed when an LLM
// credential is configured; absent otherwise.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// vectorIndex holds one embedding per document, keyed by doc_key.
type vectorIndex struct {
	Vectors map[string][]float32 `json:"vectors"`
}

// ensureIndexLocked returns a usable similarity index or nil. Call with the
// store mutex held. A persisted index is reused when it still covers the
// exact document set; otherwise the index is rebuilt from scratch and
// persisted. Any failure degrades to nil without surfacing an error.
func (s *Store) ensureIndexLocked(ctx context.Context) *vectorIndex {
	if s.embedder == nil {
		return nil
	}
	if s.index != nil {
		return s.index
	}

	if idx := s.loadIndexLocked(); idx != nil {
		s.index = idx
		return idx
	}

	keys := make([]string, 0, len(s.docs))
	texts := make([]string, 0, len(s.docs))
	for key, doc := range s.docs {
		keys = append(keys, key)
		texts = append(texts, doc.Content)
	}
	if len(texts) == 0 {
		return nil
	}

	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil || len(vectors) != len(texts) {
		s.logger.Error("Failed to build similarity index, falling back to metadata scan", "error", err)
		return nil
	}

	idx := &vectorIndex{Vectors: make(map[string][]float32, len(keys))}
	for i, key := range keys {
		idx.Vectors[key] = vectors[i]
	}
	s.index = idx
	s.persistIndexLocked(idx)
	return idx
}

func (s *Store) loadIndexLocked() *vectorIndex {
	raw, err := os.ReadFile(filepath.Join(s.dir, indexFile))
	if err != nil {
		return nil
	}
	var idx vectorIndex
	if err := json.Unmarshal(raw, &idx); err != nil {
		s.logger.Error("Failed to parse persisted similarity index, rebuilding", "error", err)
		return nil
	}
	if len(idx.Vectors) != len(s.docs) {
		return nil
	}
	for key := range s.docs {
		if _, ok := idx.Vectors[key]; !ok {
			return nil
		}
	}
	return &idx
}

func (s *Store) persistIndexLocked(idx *vectorIndex) {
	data, err := json.Marshal(idx)
	if err != nil {
		s.logger.Error("Failed to encode similarity index", "error", err)
		return
	}
	path := filepath.Join(s.dir, indexFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		s.logger.Error("Failed to write similarity index", "error", err)
		return
	}
	if err := os.Rename(tmp, path); err != nil {
		s.logger.Error("Failed to replace similarity index", "error", err)
	}
}

// Search returns up to limit documents matching the metadata filter,
// similarity-ordered when the index is available and recency-ordered
// otherwise.
func (s *Store) Search(ctx context.Context, query string, limit int, filter map[string]string) []Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	var candidates []Document
	for _, doc := range s.docs {
		if matchesFilter(doc, filter) {
			candidates = append(candidates, doc.Clone())
		}
	}

	if idx := s.ensureIndexLocked(ctx); idx != nil {
		if ranked, ok := s.rankBySimilarityLocked(ctx, idx, query, candidates); ok {
			if len(ranked) > limit {
				ranked = ranked[:limit]
			}
			return ranked
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].CreatedAt > candidates[j].CreatedAt })
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

func (s *Store) rankBySimilarityLocked(ctx context.Context, idx *vectorIndex, query string, candidates []Document) ([]Document, bool) {
	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil || len(vectors) != 1 {
		s.logger.Error("Similarity search failed, falling back to metadata scan", "error", err)
		return nil, false
	}
	queryVec := vectors[0]

	type scored struct {
		doc   Document
		score float64
	}
	ranked := make([]scored, 0, len(candidates))
	for _, doc := range candidates {
		vec, ok := idx.Vectors[doc.DocKey]
		if !ok {
			continue
		}
		ranked = append(ranked, scored{doc: doc, score: cosineSimilarity(queryVec, vec)})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	out := make([]Document, len(ranked))
	for i, entry := range ranked {
		out[i] = entry.doc
	}
	return out, true
}

func matchesFilter(doc *Document, filter map[string]string) bool {
	for key, want := range filter {
		value, ok := doc.Metadata[key].(string)
		if !ok || value != want {
			return false
		}
	}
	return true
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
