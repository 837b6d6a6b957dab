package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/hweber/secondbrain/modules/hitl/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockRequestRepository implements ports.RequestRepository
type MockRequestRepository struct {
	mu       sync.Mutex
	nextID   int64
	requests map[int64]*model.HumanRequest
}

func newMockRepo() *MockRequestRepository {
	return &MockRequestRepository{nextID: 1, requests: map[int64]*model.HumanRequest{}}
}

func (m *MockRequestRepository) Create(ctx context.Context, automation, requestType, question string, options []string, reqContext json.RawMessage) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.requests[id] = &model.HumanRequest{
		ID:          id,
		Automation:  automation,
		RequestType: requestType,
		Question:    question,
		Options:     options,
		Status:      model.StatusPending,
		Context:     reqContext,
		CreatedAt:   time.Now(),
	}
	return id, nil
}

func (m *MockRequestRepository) GetByID(ctx context.Context, id int64) (*model.HumanRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return nil, model.ErrRequestNotFound
	}
	copied := *req
	return &copied, nil
}

func (m *MockRequestRepository) ListPending(ctx context.Context, automation string) ([]*model.HumanRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var pending []*model.HumanRequest
	for _, req := range m.requests {
		if req.Automation == automation && req.Status == model.StatusPending {
			copied := *req
			pending = append(pending, &copied)
		}
	}
	return pending, nil
}

func (m *MockRequestRepository) Resolve(ctx context.Context, id int64, status, response string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return model.ErrRequestNotFound
	}
	if req.Status != model.StatusPending {
		return model.ErrTerminalRequest
	}
	req.Status = status
	req.Response = &response
	now := time.Now()
	req.AnsweredAt = &now
	return nil
}

func (m *MockRequestRepository) MarkTimeout(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if req, ok := m.requests[id]; ok && req.Status == model.StatusPending {
		req.Status = model.StatusTimeout
	}
	return nil
}

func TestServiceRespond(t *testing.T) {
	repo := newMockRepo()
	svc := NewService("test", repo)
	ctx := context.Background()

	t.Run("choice answer", func(t *testing.T) {
		id, err := svc.CreateRequest(ctx, model.TypeChoice, "Welche?", []string{"A", "B"}, nil)
		require.NoError(t, err)

		require.NoError(t, svc.Respond(ctx, id, "A", nil))

		req, err := svc.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, model.StatusAnswered, req.Status)
		assert.Equal(t, "A", *req.Response)
	})

	t.Run("approval sets approved or rejected", func(t *testing.T) {
		approved := true
		id, err := svc.CreateRequest(ctx, model.TypeApproval, "Löschen?", nil, nil)
		require.NoError(t, err)
		require.NoError(t, svc.Respond(ctx, id, "", &approved))

		req, _ := svc.Get(ctx, id)
		assert.Equal(t, model.StatusApproved, req.Status)

		rejected := false
		id2, _ := svc.CreateRequest(ctx, model.TypeApproval, "Wirklich?", nil, nil)
		require.NoError(t, svc.Respond(ctx, id2, "", &rejected))
		req2, _ := svc.Get(ctx, id2)
		assert.Equal(t, model.StatusRejected, req2.Status)
	})

	t.Run("terminal request cannot change again", func(t *testing.T) {
		id, _ := svc.CreateRequest(ctx, model.TypeChoice, "X?", []string{"A"}, nil)
		require.NoError(t, svc.Respond(ctx, id, "A", nil))

		err := svc.Respond(ctx, id, "B", nil)
		assert.ErrorIs(t, err, model.ErrTerminalRequest)

		err = svc.Cancel(ctx, id)
		assert.ErrorIs(t, err, model.ErrTerminalRequest)
	})
}

func TestServiceCancel(t *testing.T) {
	repo := newMockRepo()
	svc := NewService("test", repo)
	ctx := context.Background()

	id, _ := svc.CreateRequest(ctx, model.TypeInput, "Name?", nil, nil)
	require.NoError(t, svc.Cancel(ctx, id))

	req, _ := svc.Get(ctx, id)
	assert.Equal(t, model.StatusCancelled, req.Status)
}

func TestServiceGetPending(t *testing.T) {
	repo := newMockRepo()
	svc := NewService("test", repo)
	ctx := context.Background()

	id1, _ := svc.CreateRequest(ctx, model.TypeChoice, "A?", []string{"x"}, nil)
	_, _ = svc.CreateRequest(ctx, model.TypeChoice, "B?", []string{"y"}, nil)
	require.NoError(t, svc.Respond(ctx, id1, "x", nil))

	pending, err := svc.GetPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "B?", pending[0].Question)
}

func TestServiceWait(t *testing.T) {
	t.Run("resolves once answered", func(t *testing.T) {
		repo := newMockRepo()
		svc := NewService("test", repo)
		ctx := context.Background()

		id, _ := svc.CreateRequest(ctx, model.TypeChoice, "Warten?", []string{"A"}, nil)

		go func() {
			time.Sleep(30 * time.Millisecond)
			_ = svc.Respond(ctx, id, "A", nil)
		}()

		req, err := svc.Wait(ctx, id, time.Second, 10*time.Millisecond)
		require.NoError(t, err)
		require.NotNil(t, req)
		assert.Equal(t, model.StatusAnswered, req.Status)
	})

	t.Run("marks timeout when deadline passes", func(t *testing.T) {
		repo := newMockRepo()
		svc := NewService("test", repo)
		ctx := context.Background()

		id, _ := svc.CreateRequest(ctx, model.TypeChoice, "Niemals?", []string{"A"}, nil)

		req, err := svc.Wait(ctx, id, 30*time.Millisecond, 10*time.Millisecond)
		require.NoError(t, err)
		assert.Nil(t, req)

		stored, _ := svc.Get(ctx, id)
		assert.Equal(t, model.StatusTimeout, stored.Status)
	})

	t.Run("cancelled context aborts the wait", func(t *testing.T) {
		repo := newMockRepo()
		svc := NewService("test", repo)

		id, _ := svc.CreateRequest(context.Background(), model.TypeChoice, "X?", []string{"A"}, nil)

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()

		_, err := svc.Wait(ctx, id, time.Minute, 10*time.Millisecond)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
