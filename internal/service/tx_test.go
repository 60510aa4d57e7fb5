package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/cloo-solutions/financelm/internal/domain"
)

// memStore is an in-memory document and chunk store. WithTx restores the
// previous state when fn fails, like a rolled back transaction.
type memStore struct {
	mu sync.Mutex

	docs   []domain.Document
	chunks []domain.Chunk
	meta   []domain.EmbeddingMetadata

	nextDocID   int64
	nextChunkID int64

	// failChunkCreateAt makes the n-th chunk insert (1-based) fail.
	failChunkCreateAt int
	chunkCreates      int

	fetchErr   error
	fetchLimit int
	txCalls    int
}

func newMemStore() *memStore {
	return &memStore{nextDocID: 1, nextChunkID: 1}
}

var errInjected = errors.New("injected failure")

func (s *memStore) WithTx(ctx context.Context, fn func(repos TxRepositories) error) error {
	s.mu.Lock()
	s.txCalls++
	docs := append([]domain.Document(nil), s.docs...)
	chunks := append([]domain.Chunk(nil), s.chunks...)
	meta := append([]domain.EmbeddingMetadata(nil), s.meta...)
	nextDoc, nextChunk := s.nextDocID, s.nextChunkID
	s.mu.Unlock()

	if err := fn(&memRepos{s: s}); err != nil {
		s.mu.Lock()
		s.docs, s.chunks, s.meta = docs, chunks, meta
		s.nextDocID, s.nextChunkID = nextDoc, nextChunk
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *memStore) FetchChunksByFilter(ctx context.Context, filters domain.Filters, limit int) ([]domain.Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchLimit = limit
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}

	out := []domain.Chunk{}
	for _, c := range s.chunks {
		if filters.Matches(c) {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) GetByID(ctx context.Context, id int64) (*domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.docs {
		if s.docs[i].ID == id {
			d := s.docs[i]
			return &d, nil
		}
	}
	return nil, domain.ErrDocumentNotFound
}

func (s *memStore) List(ctx context.Context, filter DocumentListFilter) ([]*domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*domain.Document{}
	for i := len(s.docs) - 1; i >= 0; i-- {
		d := s.docs[i]
		if filter.Ticker != "" && domain.StringValue(d.Ticker) != filter.Ticker {
			continue
		}
		if filter.Source != "" && d.Source != filter.Source {
			continue
		}
		if filter.After != nil && d.ID >= filter.After.LastID {
			continue
		}
		out = append(out, &d)
		if len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (s *memStore) ExistsByOrigin(ctx context.Context, origin string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.docs {
		if d.Origin != "" && d.Origin == origin {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) documentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}

func (s *memStore) chunkCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chunks)
}

// memRepos hands out repositories bound to the store.
type memRepos struct {
	s *memStore
}

func (r *memRepos) Documents() DocumentRepositoryInterface { return memDocuments{r.s} }
func (r *memRepos) Chunks() ChunkRepositoryInterface       { return memChunks{r.s} }
func (r *memRepos) EmbeddingMetadata() EmbeddingMetadataRepositoryInterface {
	return memEmbeddingMetadata{r.s}
}

type memDocuments struct{ s *memStore }

func (m memDocuments) Create(ctx context.Context, doc *domain.Document) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, d := range m.s.docs {
		if doc.Origin != "" && d.Origin == doc.Origin {
			return domain.ErrDocumentAlreadyExists
		}
	}
	doc.ID = m.s.nextDocID
	m.s.nextDocID++
	doc.CreatedAt = time.Date(2026, 1, 1, 0, 0, int(doc.ID), 0, time.UTC)
	m.s.docs = append(m.s.docs, *doc)
	return nil
}

type memChunks struct{ s *memStore }

func (m memChunks) Create(ctx context.Context, chunk *domain.Chunk) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.chunkCreates++
	if m.s.failChunkCreateAt > 0 && m.s.chunkCreates == m.s.failChunkCreateAt {
		return errInjected
	}
	for _, c := range m.s.chunks {
		if c.ChunkID == chunk.ChunkID {
			return domain.ErrChunkAlreadyExists
		}
	}
	chunk.ID = m.s.nextChunkID
	m.s.nextChunkID++
	m.s.chunks = append(m.s.chunks, *chunk)
	return nil
}

type memEmbeddingMetadata struct{ s *memStore }

func (m memEmbeddingMetadata) Create(ctx context.Context, meta *domain.EmbeddingMetadata) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.meta = append(m.s.meta, *meta)
	return nil
}

var (
	_ TxRunner                = (*memStore)(nil)
	_ ChunkStore              = (*memStore)(nil)
	_ DocumentReaderInterface = (*memStore)(nil)
	_ OriginChecker           = (*memStore)(nil)
)
