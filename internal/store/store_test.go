package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tradefinlabs/docpipeline/constants"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "audit.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateAndUpdate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.Create(ctx, "batch.pdf", "batch.pdf_doc_001")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	err = s.Update(ctx, Record{
		ID:                id,
		DocumentType:      "commercial_invoice",
		Confidence:        0.92,
		Status:            constants.JobStatusSubmitted,
		SplitMethod:       constants.SplitMethodLLMBoundary,
		PageRange:         "1-2",
		ValidationStatus:  constants.ValidationCompleted,
		SubmissionOutcome: constants.SubmissionSuccess,
	})
	require.NoError(t, err)

	recs, err := s.BySource(ctx, "batch.pdf")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, "commercial_invoice", recs[0].DocumentType)
	require.Equal(t, constants.JobStatusSubmitted, recs[0].Status)
	require.Equal(t, "1-2", recs[0].PageRange)
	require.Equal(t, constants.SubmissionSuccess, recs[0].SubmissionOutcome)
}

func TestUpdateMissingRow(t *testing.T) {
	s := openTestStore(t)

	err := s.Update(context.Background(), Record{ID: "nope"})
	require.ErrorContains(t, err, "no such row")
}

func TestSetStatusAndOrdering(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id1, err := s.Create(ctx, "batch.pdf", "batch.pdf_doc_001")
	require.NoError(t, err)
	id2, err := s.Create(ctx, "batch.pdf", "batch.pdf_doc_002")
	require.NoError(t, err)
	_, err = s.Create(ctx, "other.pdf", "other.pdf_doc_001")
	require.NoError(t, err)

	require.NoError(t, s.SetStatus(ctx, id1, constants.JobStatusFailed, "oracle down"))
	require.NoError(t, s.SetStatus(ctx, id2, constants.JobStatusRunning, ""))

	recs, err := s.BySource(ctx, "batch.pdf")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.Equal(t, constants.JobStatusFailed, recs[0].Status)
	require.Equal(t, "oracle down", recs[0].Error)
	require.Equal(t, constants.JobStatusRunning, recs[1].Status)
}
