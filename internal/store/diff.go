package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Chunk is one changed run of text between two bodies.
type Chunk struct {
	Type    string `json:"type"` // "added" or "removed"
	Content string `json:"content"`
}

// DiffResult compares the response bodies of two transactions.
type DiffResult struct {
	BaseID string  `json:"base_id"`
	HeadID string  `json:"head_id"`
	Chunks []Chunk `json:"chunks"`
}

// DiffBodies diffs the response body of baseID against that of headID.
// Either transaction lacking a response is an error.
func (s *SQLiteStore) DiffBodies(ctx context.Context, baseID, headID string) (*DiffResult, error) {
	base, err := s.responseBody(ctx, baseID)
	if err != nil {
		return nil, err
	}
	head, err := s.responseBody(ctx, headID)
	if err != nil {
		return nil, err
	}
	return &DiffResult{BaseID: baseID, HeadID: headID, Chunks: DiffText(base, head)}, nil
}

func (s *SQLiteStore) responseBody(ctx context.Context, id string) ([]byte, error) {
	tx, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if tx.Response == nil {
		return nil, fmt.Errorf("transaction %s: %w", id, ErrNoResponse)
	}
	return tx.Response.Body, nil
}

// DiffText returns the semantic character-level changes from base to head.
// Equal runs and whitespace-only changes are omitted.
func DiffText(base, head []byte) []Chunk {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(string(base), string(head), true)
	diffs = dmp.DiffCleanupSemantic(diffs)

	chunks := make([]Chunk, 0, len(diffs))
	for _, d := range diffs {
		var kind string
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			kind = "added"
		case diffmatchpatch.DiffDelete:
			kind = "removed"
		default:
			continue
		}
		if strings.TrimSpace(d.Text) == "" {
			continue
		}
		chunks = append(chunks, Chunk{Type: kind, Content: d.Text})
	}
	return chunks
}
