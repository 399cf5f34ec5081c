package pipeline

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/stacklok/nc-bridge/internal/pipeline/mocks"
)

func TestProcessDocument_HappyPath_UpsertsEveryChunkAndMarksSeen(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	fetcher := mocks.NewMockContentFetcher(ctrl)
	processor := mocks.NewMockDocumentProcessor(ctrl)
	embedder := mocks.NewMockEmbeddingService(ctrl)
	store := mocks.NewMockVectorStore(ctrl)
	index := mocks.NewMockIndexState(ctrl)

	ref := DocumentRef{UserID: "alice", FileID: "42", ContentType: "text/plain", ETag: "abc"}
	content := []byte("hello world")
	chunks := []string{"hello", "world"}
	embeddings := [][]float32{{1, 2}, {3, 4}}

	fetcher.EXPECT().FetchContent(gomock.Any(), ref).Return(content, nil)
	processor.EXPECT().ExtractChunks(gomock.Any(), ref.ContentType, content).Return(chunks, nil)
	embedder.EXPECT().Embed(gomock.Any(), chunks).Return(embeddings, nil)
	store.EXPECT().Upsert(gomock.Any(), ref.FileID, 0, embeddings[0], chunks[0]).Return(nil)
	store.EXPECT().Upsert(gomock.Any(), ref.FileID, 1, embeddings[1], chunks[1]).Return(nil)
	index.EXPECT().MarkSeen(gomock.Any(), ref.UserID, ref.FileID, ref.ETag).Return(nil)

	p := New(Config{QueueMaxSize: 1, ProcessorWorkers: 1, UserID: ref.UserID}, nil, fetcher, processor, embedder, store, index)
	p.processDocument(context.Background(), ref)
}

func TestProcessDocument_PartialUpsertFailureStillMarksSeen(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	fetcher := mocks.NewMockContentFetcher(ctrl)
	processor := mocks.NewMockDocumentProcessor(ctrl)
	embedder := mocks.NewMockEmbeddingService(ctrl)
	store := mocks.NewMockVectorStore(ctrl)
	index := mocks.NewMockIndexState(ctrl)

	ref := DocumentRef{UserID: "alice", FileID: "42", ContentType: "text/plain", ETag: "abc"}
	chunks := []string{"only chunk"}
	embeddings := [][]float32{{1, 2}}

	fetcher.EXPECT().FetchContent(gomock.Any(), ref).Return([]byte("x"), nil)
	processor.EXPECT().ExtractChunks(gomock.Any(), ref.ContentType, []byte("x")).Return(chunks, nil)
	embedder.EXPECT().Embed(gomock.Any(), chunks).Return(embeddings, nil)
	store.EXPECT().Upsert(gomock.Any(), ref.FileID, 0, embeddings[0], chunks[0]).Return(errors.New("store unavailable"))
	index.EXPECT().MarkSeen(gomock.Any(), ref.UserID, ref.FileID, ref.ETag).Return(nil)

	p := New(Config{QueueMaxSize: 1, ProcessorWorkers: 1, UserID: ref.UserID}, nil, fetcher, processor, embedder, store, index)
	p.processDocument(context.Background(), ref)
}

func TestProcessDocument_EmbedFailureSkipsUpsertAndMarkSeen(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	fetcher := mocks.NewMockContentFetcher(ctrl)
	processor := mocks.NewMockDocumentProcessor(ctrl)
	embedder := mocks.NewMockEmbeddingService(ctrl)
	store := mocks.NewMockVectorStore(ctrl)
	index := mocks.NewMockIndexState(ctrl)

	ref := DocumentRef{UserID: "alice", FileID: "42", ContentType: "text/plain", ETag: "abc"}
	chunks := []string{"only chunk"}

	fetcher.EXPECT().FetchContent(gomock.Any(), ref).Return([]byte("x"), nil)
	processor.EXPECT().ExtractChunks(gomock.Any(), ref.ContentType, []byte("x")).Return(chunks, nil)
	embedder.EXPECT().Embed(gomock.Any(), chunks).Return(nil, errors.New("embedding service down"))
	// store.Upsert and index.MarkSeen must NOT be called.

	p := New(Config{QueueMaxSize: 1, ProcessorWorkers: 1, UserID: ref.UserID}, nil, fetcher, processor, embedder, store, index)
	p.processDocument(context.Background(), ref)
}

func TestProcessDocument_EmbeddingRateLimitAbortsOnCanceledContext(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	fetcher := mocks.NewMockContentFetcher(ctrl)
	processor := mocks.NewMockDocumentProcessor(ctrl)
	embedder := mocks.NewMockEmbeddingService(ctrl)
	store := mocks.NewMockVectorStore(ctrl)
	index := mocks.NewMockIndexState(ctrl)

	ref := DocumentRef{UserID: "alice", FileID: "42", ContentType: "text/plain", ETag: "abc"}
	chunks := []string{"only chunk"}

	fetcher.EXPECT().FetchContent(gomock.Any(), ref).Return([]byte("x"), nil)
	processor.EXPECT().ExtractChunks(gomock.Any(), ref.ContentType, []byte("x")).Return(chunks, nil)
	// embedder.Embed must NOT be called: the limiter's single token is
	// already spent, and the context is canceled before one regenerates.

	p := New(Config{
		QueueMaxSize:       1,
		ProcessorWorkers:   1,
		UserID:             ref.UserID,
		EmbeddingRateLimit: 0.001,
		EmbeddingBurst:     1,
	}, nil, fetcher, processor, embedder, store, index)

	// Spend the single burst token so the next Wait call must block.
	p.embedLimiter.Allow()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.processDocument(ctx, ref)
}
