// Package collab defines the document-branch surface the review
// controller drives when a session runs atop a collaborative document:
// fork a private branch for the AI to write into, merge it back on
// accept, discard it on reject.
//
// The CRDT layer that would back these operations in a multi-writer
// deployment is an external collaborator; this package ships the
// interface plus an in-memory implementation used by single-process
// deployments and tests.
package collab

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dshills/draftpilot/internal/document"
)

// Errors returned by branch operations.
var (
	// ErrBranchResolved indicates Merge or Discard was already called.
	ErrBranchResolved = errors.New("collab: branch already resolved")

	// ErrDocumentNotFound indicates an unknown shared document ID.
	ErrDocumentNotFound = errors.New("collab: document not found")
)

// Branch is a private fork of a shared document. Exactly one of Merge
// or Discard resolves a branch; both fail afterward.
type Branch interface {
	// Doc returns the branch's working document.
	Doc() *document.Document

	// Merge publishes the branch's state into the shared document.
	Merge(ctx context.Context) error

	// Discard abandons the branch without touching the shared document.
	Discard(ctx context.Context) error
}

// Forker forks branches off a shared document.
type Forker interface {
	Fork(ctx context.Context, docID string) (Branch, error)
}

// MemoryStore is an in-process Forker holding shared documents.
type MemoryStore struct {
	mu   sync.Mutex
	docs map[string]*document.Document
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]*document.Document)}
}

// Put registers a shared document under an ID.
func (s *MemoryStore) Put(docID string, doc *document.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[docID] = doc
}

// Get returns a shared document.
func (s *MemoryStore) Get(docID string) (*document.Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[docID]
	return d, ok
}

// Fork implements Forker. The branch starts as a deep copy of the
// shared document's current state.
func (s *MemoryStore) Fork(ctx context.Context, docID string) (Branch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	shared, ok := s.docs[docID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, docID)
	}
	fork, err := document.FromBlocks(shared.Blocks()...)
	if err != nil {
		return nil, fmt.Errorf("collab: fork %s: %w", docID, err)
	}
	return &memoryBranch{store: s, docID: docID, doc: fork}, nil
}

type memoryBranch struct {
	store    *MemoryStore
	docID    string
	doc      *document.Document
	resolved bool
	mu       sync.Mutex
}

func (b *memoryBranch) Doc() *document.Document { return b.doc }

// Merge implements Branch. The shared entry is replaced wholesale:
// the memory store models a single logical writer, so a block-level
// reconciliation would have nothing to reconcile.
func (b *memoryBranch) Merge(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.resolved {
		return ErrBranchResolved
	}

	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	if _, ok := b.store.docs[b.docID]; !ok {
		return fmt.Errorf("%w: %s", ErrDocumentNotFound, b.docID)
	}
	merged, err := document.FromBlocks(b.doc.Blocks()...)
	if err != nil {
		return fmt.Errorf("collab: merge %s: %w", b.docID, err)
	}
	b.store.docs[b.docID] = merged
	b.resolved = true
	return nil
}

// Discard implements Branch.
func (b *memoryBranch) Discard(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.resolved {
		return ErrBranchResolved
	}
	b.resolved = true
	return nil
}
