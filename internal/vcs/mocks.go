package vcs

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/thomas-vilte/shipsheet/internal/models"
)

type MockSource struct {
	mock.Mock
	Name string
}

func (m *MockSource) Platform() string {
	return m.Name
}

func (m *MockSource) ListMerged(ctx context.Context, repo string, window Window) ([]models.ChangeRequest, error) {
	args := m.Called(ctx, repo, window)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ChangeRequest), args.Error(1)
}

func (m *MockSource) ListMergedBetween(ctx context.Context, repo, base, head string) ([]models.ChangeRequest, error) {
	args := m.Called(ctx, repo, base, head)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ChangeRequest), args.Error(1)
}
