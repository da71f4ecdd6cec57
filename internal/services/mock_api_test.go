package services

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/murshop24/admin/internal/telegram"
)

// MockBotAPI is a testify mock of BotAPI.
type MockBotAPI struct {
	mock.Mock
}

func (m *MockBotAPI) GetMe(ctx context.Context, token string) (telegram.Identity, telegram.Response, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(telegram.Identity), args.Get(1).(telegram.Response), args.Error(2)
}

func (m *MockBotAPI) SetWebhook(ctx context.Context, token, callbackURL, secretToken string) (telegram.Response, error) {
	args := m.Called(ctx, token, callbackURL, secretToken)
	return args.Get(0).(telegram.Response), args.Error(1)
}

func (m *MockBotAPI) DeleteWebhook(ctx context.Context, token string) (telegram.Response, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(telegram.Response), args.Error(1)
}

var (
	okResp = telegram.Response{OK: true}
	notOK  = telegram.Response{OK: false, ErrorCode: 401, Description: "Unauthorized"}
)
