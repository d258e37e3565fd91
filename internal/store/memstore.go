package store

import (
	"context"
	"sync"

	"midi-ingest/internal/model"
)

// MemStore is an in-memory Store used in tests and when no external
// database is configured. It enforces the same unique-hash constraint and
// batch-transactional semantics the interface promises, guarded by a single
// mutex — acceptable here because MemStore exists for correctness testing,
// not for the throughput a production backend would need.
type MemStore struct {
	mu          sync.Mutex
	nextID      int64
	files       map[int64]model.FileRecord
	hashToID    map[string]int64
	metadata    map[int64]model.MusicalMetadata
	tags        map[int64][]model.Tag
	instruments map[int64][]model.TrackInstrument
	relations   []model.SplitRelation
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		files:       make(map[int64]model.FileRecord),
		hashToID:    make(map[string]int64),
		metadata:    make(map[int64]model.MusicalMetadata),
		tags:        make(map[int64][]model.Tag),
		instruments: make(map[int64][]model.TrackInstrument),
	}
}

func (s *MemStore) LookupHashes(_ context.Context, hashes []string) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := make(map[string]int64, len(hashes))
	for _, h := range hashes {
		if id, ok := s.hashToID[h]; ok {
			found[h] = id
		}
	}
	return found, nil
}

func (s *MemStore) InsertFiles(_ context.Context, records []model.FileRecord) ([]model.FileRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inserted := make([]model.FileRecord, 0, len(records))
	for _, rec := range records {
		if _, exists := s.hashToID[rec.ContentHash]; exists {
			continue
		}
		s.nextID++
		rec.ID = s.nextID
		s.files[rec.ID] = rec
		s.hashToID[rec.ContentHash] = rec.ID
		inserted = append(inserted, rec)
	}
	return inserted, nil
}

func (s *MemStore) UpdateFile(_ context.Context, record model.FileRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.files[record.ID] = record
	return nil
}

func (s *MemStore) InsertSplitChildren(_ context.Context, parent model.FileRecord, children []model.FileRecord, relations []model.SplitRelation) ([]model.FileRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.files[parent.ID] = parent

	// relations[i] describes children[i]; fill in the child's ID once known.
	rels := append([]model.SplitRelation(nil), relations...)
	inserted := make([]model.FileRecord, 0, len(children))
	for i, child := range children {
		if id, exists := s.hashToID[child.ContentHash]; exists {
			if i < len(rels) {
				rels[i].ChildID = id
			}
			continue
		}
		s.nextID++
		child.ID = s.nextID
		s.files[child.ID] = child
		s.hashToID[child.ContentHash] = child.ID
		inserted = append(inserted, child)
		if i < len(rels) {
			rels[i].ChildID = child.ID
		}
	}
	s.relations = append(s.relations, rels...)
	return inserted, nil
}

func (s *MemStore) SaveAnalysis(_ context.Context, meta model.MusicalMetadata, tags []model.Tag, instruments []model.TrackInstrument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveAnalysisLocked(meta, tags, instruments)
	return nil
}

func (s *MemStore) SaveAnalysisBatch(_ context.Context, metas []model.MusicalMetadata, tags [][]model.Tag, instruments [][]model.TrackInstrument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, meta := range metas {
		s.saveAnalysisLocked(meta, tags[i], instruments[i])
	}
	return nil
}

func (s *MemStore) saveAnalysisLocked(meta model.MusicalMetadata, tags []model.Tag, instruments []model.TrackInstrument) {
	s.metadata[meta.FileID] = meta
	s.tags[meta.FileID] = tags
	s.instruments[meta.FileID] = instruments

	rec := s.files[meta.FileID]
	rec.Analyzed = true
	s.files[meta.FileID] = rec
}

func (s *MemStore) GetMetadata(_ context.Context, fileID int64) (model.MusicalMetadata, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, ok := s.metadata[fileID]
	return meta, ok, nil
}

func (s *MemStore) Close() error { return nil }
