package enrich

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/thomas-vilte/shipsheet/internal/models"
)

type MockWorkItemSource struct {
	mock.Mock
}

func (m *MockWorkItemSource) GetWorkItem(ctx context.Context, id int) (*models.WorkItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WorkItem), args.Error(1)
}
