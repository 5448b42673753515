package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nluhub/nluhub/internal/models"
	"github.com/nluhub/nluhub/internal/store"
)

// AccessRequestStore implements store.AccessRequestStore using in-memory storage.
type AccessRequestStore struct {
	mu sync.Mutex

	requests map[uuid.UUID]*models.AccessRequest // request_id -> AccessRequest
}

// NewAccessRequestStore creates a new in-memory access request store.
func NewAccessRequestStore() *AccessRequestStore {
	return &AccessRequestStore{
		requests: make(map[uuid.UUID]*models.AccessRequest),
	}
}

func cloneRequest(req *models.AccessRequest) *models.AccessRequest {
	clone := *req
	if req.ApprovedBy != nil {
		approver := *req.ApprovedBy
		clone.ApprovedBy = &approver
	}
	return &clone
}

// Create persists a new request.
func (s *AccessRequestStore) Create(ctx context.Context, req *models.AccessRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.requests[req.RequestID]; exists {
		return store.ErrAccessRequestAlreadyExists
	}
	for _, existing := range s.requests {
		if existing.RepositoryID == req.RepositoryID && existing.PrincipalID == req.PrincipalID {
			return store.ErrAccessRequestAlreadyExists
		}
	}

	s.requests[req.RequestID] = cloneRequest(req)

	return nil
}

// Get retrieves a request by ID.
func (s *AccessRequestStore) Get(ctx context.Context, requestID uuid.UUID) (*models.AccessRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[requestID]
	if !ok {
		return nil, store.ErrAccessRequestNotFound
	}

	return cloneRequest(req), nil
}

// Approve sets approved_by if and only if it is still unset.
func (s *AccessRequestStore) Approve(ctx context.Context, requestID, approverID uuid.UUID) (*models.AccessRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[requestID]
	if !ok {
		return nil, store.ErrAccessRequestNotFound
	}
	if req.ApprovedBy != nil {
		return nil, store.ErrAccessRequestAlreadyApproved
	}

	approver := approverID
	req.ApprovedBy = &approver
	req.UpdatedAt = time.Now()

	return cloneRequest(req), nil
}

// Delete removes a request.
func (s *AccessRequestStore) Delete(ctx context.Context, requestID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.requests[requestID]; !ok {
		return store.ErrAccessRequestNotFound
	}

	delete(s.requests, requestID)

	return nil
}

// ListByRepository returns the requests of a repository, oldest first.
func (s *AccessRequestStore) ListByRepository(ctx context.Context, repositoryID uuid.UUID) ([]*models.AccessRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []*models.AccessRequest
	for _, req := range s.requests {
		if req.RepositoryID == repositoryID {
			result = append(result, cloneRequest(req))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}
