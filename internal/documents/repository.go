package documents

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"peerprep/interview/internal/models"
)

var ErrNotFound = errors.New("document not found")

// Repository stores uploaded study material.
type Repository interface {
	Create(ctx context.Context, doc *models.Document) error
	Get(ctx context.Context, id string) (*models.Document, error)
}

// prepare fills the id and creation time of a new document.
func prepare(doc *models.Document) {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
}

// MemoryRepository keeps documents in process memory.
type MemoryRepository struct {
	mu   sync.RWMutex
	docs map[string]models.Document
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{docs: make(map[string]models.Document)}
}

func (r *MemoryRepository) Create(ctx context.Context, doc *models.Document) error {
	prepare(doc)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[doc.ID] = *doc
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, id string) (*models.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &doc, nil
}
