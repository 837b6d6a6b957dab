package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hweber/secondbrain/modules/hitl/model"
	"github.com/hweber/secondbrain/modules/hitl/ports"
)

// Service provides human-in-the-loop request handling for one automation
type Service struct {
	automation string
	repo       ports.RequestRepository
}

// NewService creates a human-in-the-loop service
func NewService(automation string, repo ports.RequestRepository) *Service {
	return &Service{automation: automation, repo: repo}
}

// CreateRequest records a new pending request and returns its id
func (s *Service) CreateRequest(ctx context.Context, requestType, question string, options []string, reqContext json.RawMessage) (int64, error) {
	return s.repo.Create(ctx, s.automation, requestType, question, options, reqContext)
}

// Get returns a request by id
func (s *Service) Get(ctx context.Context, id int64) (*model.HumanRequest, error) {
	return s.repo.GetByID(ctx, id)
}

// GetPending returns all open requests of this automation
func (s *Service) GetPending(ctx context.Context) ([]*model.HumanRequest, error) {
	return s.repo.ListPending(ctx, s.automation)
}

// Respond resolves a pending request. For approval requests, approved
// selects between approved/rejected; everything else becomes answered.
func (s *Service) Respond(ctx context.Context, id int64, response string, approved *bool) error {
	status := model.StatusAnswered
	if approved != nil {
		if *approved {
			status = model.StatusApproved
		} else {
			status = model.StatusRejected
		}
	}
	return s.repo.Resolve(ctx, id, status, response)
}

// Cancel aborts a pending request
func (s *Service) Cancel(ctx context.Context, id int64) error {
	return s.repo.Resolve(ctx, id, model.StatusCancelled, "")
}

// Wait polls until the request leaves pending or the timeout passes. On
// timeout the request is marked accordingly and nil is returned. No DB
// transaction is held between polls.
func (s *Service) Wait(ctx context.Context, id int64, timeout, pollInterval time.Duration) (*model.HumanRequest, error) {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	deadline := time.Now().Add(timeout)

	for {
		req, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if req.IsTerminal() {
			return req, nil
		}

		if time.Now().After(deadline) {
			if err := s.repo.MarkTimeout(ctx, id); err != nil {
				return nil, err
			}
			return nil, nil
		}

		select {
		case <-time.After(pollInterval):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
