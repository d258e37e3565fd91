package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"midi-ingest/internal/model"
)

func TestMemStoreInsertAndDedup(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	inserted, err := s.InsertFiles(ctx, []model.FileRecord{
		{FilePath: "a.mid", ContentHash: "hash-a"},
		{FilePath: "b.mid", ContentHash: "hash-b"},
	})
	require.NoError(t, err)
	assert.Len(t, inserted, 2)

	// Re-inserting the same hash is silently skipped, not an error.
	again, err := s.InsertFiles(ctx, []model.FileRecord{{FilePath: "a-dup.mid", ContentHash: "hash-a"}})
	require.NoError(t, err)
	assert.Empty(t, again)

	found, err := s.LookupHashes(ctx, []string{"hash-a", "hash-missing"})
	require.NoError(t, err)
	assert.Contains(t, found, "hash-a")
	assert.NotContains(t, found, "hash-missing")
}

func TestMemStoreSaveAnalysisMarksAnalyzed(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	inserted, err := s.InsertFiles(ctx, []model.FileRecord{{FilePath: "a.mid", ContentHash: "h1"}})
	require.NoError(t, err)
	require.Len(t, inserted, 1)
	fileID := inserted[0].ID

	meta := model.MusicalMetadata{FileID: fileID, BPM: 120, KeySignature: "C major"}
	require.NoError(t, s.SaveAnalysis(ctx, meta, nil, nil))

	got, ok, err := s.GetMetadata(ctx, fileID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 120.0, got.BPM)
}

func TestMemStoreInsertSplitChildren(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	inserted, err := s.InsertFiles(ctx, []model.FileRecord{{FilePath: "parent.mid", ContentHash: "parent-hash"}})
	require.NoError(t, err)
	parent := inserted[0]
	parent.IsMultiTrack = true

	children, err := s.InsertSplitChildren(ctx, parent, []model.FileRecord{
		{FilePath: "parent_track00.mid", ContentHash: "child-hash-0"},
	}, []model.SplitRelation{{ParentID: parent.ID, TrackIndex: 0}})
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.NotZero(t, children[0].ID)
}
