package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragdex/internal/core/domain"
)

func TestDocumentService_GetAndList(t *testing.T) {
	store := newMockDocumentStore()
	store.docs["doc-a"] = &domain.Document{ID: "doc-a", Filename: "a.txt"}
	svc := NewDocumentService(store)

	doc, err := svc.GetDocument(context.Background(), "doc-a")
	require.NoError(t, err)
	assert.Equal(t, "a.txt", doc.Filename)

	_, err = svc.GetDocument(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.GetDocument(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	docs, err := svc.ListDocuments(context.Background())
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestDocumentService_GetChunksUnknownDocument(t *testing.T) {
	svc := NewDocumentService(newMockDocumentStore())

	_, err := svc.GetDocumentChunks(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentService_Delete(t *testing.T) {
	store := newMockDocumentStore()
	store.docs["doc-a"] = &domain.Document{ID: "doc-a"}
	store.chunks["doc-a"] = []domain.EmbeddedChunk{
		embeddedChunk("doc-a", 0, "one"),
		embeddedChunk("doc-a", 1, "two"),
	}
	svc := NewDocumentService(store)

	deleted, err := svc.DeleteDocument(context.Background(), "doc-a")
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	_, err = svc.DeleteDocument(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDocumentService_UpdateTagsNormalises(t *testing.T) {
	store := newMockDocumentStore()
	store.docs["doc-a"] = &domain.Document{ID: "doc-a"}
	store.chunks["doc-a"] = []domain.EmbeddedChunk{embeddedChunk("doc-a", 0, "one")}
	svc := NewDocumentService(store)

	n, err := svc.UpdateTags(context.Background(), "doc-a", []string{" Ford ", "ford", "F-150"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"ford", "f-150"}, store.docs["doc-a"].Tags)
}
