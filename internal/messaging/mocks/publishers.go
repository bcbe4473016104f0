package mocks

import (
	"context"

	"gymkapp-server/internal/messaging"

	"github.com/stretchr/testify/mock"
)

// Mock GameEventPublisher
type GameEventPublisher struct {
	mock.Mock
}

func (m *GameEventPublisher) PublishGameEvent(ctx context.Context, payload messaging.GameEventPayload) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}
