package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/murshop24/admin/internal/models"
	"github.com/murshop24/admin/internal/telegram"
)

var settings = WebhookSettings{Host: "https://admin.example.com", SecretToken: "s3cret"}

func TestTransition_CreateRegistersWebhook(t *testing.T) {
	api := &MockBotAPI{}
	api.On("GetMe", mock.Anything, "ABC").Return(telegram.Identity{ID: 111, Username: "shopbot"}, okResp, nil).Once()
	api.On("SetWebhook", mock.Anything, "ABC", "https://admin.example.com/webhook/ABC", "s3cret").Return(okResp, nil).Once()

	op := uint(7)
	bot, err := Transition(context.Background(), api, settings, nil, BotSubmission{Token: "ABC", TgOperatorID: &op})
	require.NoError(t, err)

	assert.Equal(t, "ABC", bot.Token)
	assert.Equal(t, int64(111), bot.TgID)
	assert.Equal(t, "shopbot", bot.TgUsername)
	assert.True(t, bot.IsRunning)
	assert.Equal(t, &op, bot.TgOperatorID)
	api.AssertExpectations(t)
	api.AssertNumberOfCalls(t, "SetWebhook", 1)
}

func TestTransition_InvalidToken(t *testing.T) {
	api := &MockBotAPI{}
	api.On("GetMe", mock.Anything, "bad").Return(telegram.Identity{}, notOK, nil).Once()

	_, err := Transition(context.Background(), api, settings, nil, BotSubmission{Token: "bad"})
	require.ErrorIs(t, err, ErrInvalidCredential)

	var le *LifecycleError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "Invalid token.", le.Message)
	api.AssertNotCalled(t, "SetWebhook", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTransition_EmptyTokenSkipsAPI(t *testing.T) {
	api := &MockBotAPI{}

	_, err := Transition(context.Background(), api, settings, nil, BotSubmission{Token: "   "})
	assert.ErrorIs(t, err, ErrInvalidCredential)
	api.AssertNotCalled(t, "GetMe", mock.Anything, mock.Anything)
}

func TestTransition_UpdateIdentityMismatch(t *testing.T) {
	api := &MockBotAPI{}
	api.On("GetMe", mock.Anything, "NEW").Return(telegram.Identity{ID: 222, Username: "other"}, okResp, nil).Once()

	prev := &models.TgBot{ID: 1, Token: "OLD", TgID: 111, TgUsername: "shopbot", IsRunning: true}
	_, err := Transition(context.Background(), api, settings, prev, BotSubmission{Token: "NEW"})

	require.ErrorIs(t, err, ErrIdentityMismatch)
	assert.Equal(t, "The new token does not belong to the previous bot.", err.(*LifecycleError).Message)
	assert.Equal(t, models.TgBot{ID: 1, Token: "OLD", TgID: 111, TgUsername: "shopbot", IsRunning: true}, *prev)
	api.AssertNotCalled(t, "SetWebhook", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTransition_UpdateSameIdentityRefreshesUsername(t *testing.T) {
	api := &MockBotAPI{}
	api.On("GetMe", mock.Anything, "NEW").Return(telegram.Identity{ID: 111, Username: "renamedbot"}, okResp, nil).Once()
	api.On("SetWebhook", mock.Anything, "NEW", "https://admin.example.com/webhook/NEW", "s3cret").Return(okResp, nil).Once()

	ch := uint(3)
	prev := &models.TgBot{ID: 1, Token: "OLD", TgID: 111, TgUsername: "shopbot", TgReviewsChannelID: &ch}
	bot, err := Transition(context.Background(), api, settings, prev, BotSubmission{Token: "NEW"})
	require.NoError(t, err)

	assert.Equal(t, uint(1), bot.ID)
	assert.Equal(t, "NEW", bot.Token)
	assert.Equal(t, "renamedbot", bot.TgUsername)
	assert.True(t, bot.IsRunning)
	assert.Nil(t, bot.TgReviewsChannelID, "submission clears the reviews channel")
	assert.Equal(t, "OLD", prev.Token)
	api.AssertExpectations(t)
}

func TestTransition_WebhookRejected(t *testing.T) {
	api := &MockBotAPI{}
	api.On("GetMe", mock.Anything, "ABC").Return(telegram.Identity{ID: 111, Username: "shopbot"}, okResp, nil).Once()
	api.On("SetWebhook", mock.Anything, "ABC", mock.Anything, "s3cret").
		Return(telegram.Response{OK: false, ErrorCode: 400, Description: "bad webhook"}, nil).Once()

	_, err := Transition(context.Background(), api, settings, nil, BotSubmission{Token: "ABC"})
	require.ErrorIs(t, err, ErrRegistrationFailed)
	assert.Equal(t, "Webhook setting error.", err.(*LifecycleError).Message)
}

func TestTransition_TransportFailures(t *testing.T) {
	down := &telegram.TransportError{Method: "getMe", Err: errors.New("dial tcp: connection refused")}

	t.Run("getMe", func(t *testing.T) {
		api := &MockBotAPI{}
		api.On("GetMe", mock.Anything, "ABC").Return(telegram.Identity{}, telegram.Response{}, down).Once()

		_, err := Transition(context.Background(), api, settings, nil, BotSubmission{Token: "ABC"})
		require.ErrorIs(t, err, ErrTransportFailure)
		var te *telegram.TransportError
		assert.ErrorAs(t, err, &te)
	})

	t.Run("setWebhook", func(t *testing.T) {
		api := &MockBotAPI{}
		api.On("GetMe", mock.Anything, "ABC").Return(telegram.Identity{ID: 111, Username: "shopbot"}, okResp, nil).Once()
		api.On("SetWebhook", mock.Anything, "ABC", mock.Anything, mock.Anything).Return(telegram.Response{}, down).Once()

		_, err := Transition(context.Background(), api, settings, nil, BotSubmission{Token: "ABC"})
		assert.ErrorIs(t, err, ErrTransportFailure)
	})
}

// Running the transition twice with the same token and identity ends in the
// same record both times.
func TestTransition_Idempotent(t *testing.T) {
	api := &MockBotAPI{}
	api.On("GetMe", mock.Anything, "ABC").Return(telegram.Identity{ID: 111, Username: "shopbot"}, okResp, nil)
	api.On("SetWebhook", mock.Anything, "ABC", "https://admin.example.com/webhook/ABC", "s3cret").Return(okResp, nil)

	first, err := Transition(context.Background(), api, settings, nil, BotSubmission{Token: "ABC"})
	require.NoError(t, err)
	first.ID = 1

	second, err := Transition(context.Background(), api, settings, &first, BotSubmission{Token: "ABC"})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestTeardown(t *testing.T) {
	bot := models.TgBot{Token: "ABC"}

	t.Run("ok", func(t *testing.T) {
		api := &MockBotAPI{}
		api.On("DeleteWebhook", mock.Anything, "ABC").Return(okResp, nil).Once()
		assert.NoError(t, Teardown(context.Background(), api, bot))
	})
	t.Run("not ok", func(t *testing.T) {
		api := &MockBotAPI{}
		api.On("DeleteWebhook", mock.Anything, "ABC").Return(notOK, nil).Once()
		assert.EqualError(t, Teardown(context.Background(), api, bot), "deleteWebhook: 401 Unauthorized")
	})
}

func TestWebhookURL(t *testing.T) {
	cases := []struct {
		host, token, want string
	}{
		{"https://admin.example.com", "ABC", "https://admin.example.com/webhook/ABC"},
		{"https://admin.example.com/", "ABC", "https://admin.example.com/webhook/ABC"},
		{"https://admin.example.com/shop/", "ABC", "https://admin.example.com/webhook/ABC"},
		{"https://bots.example.com:8443", "123:AAH-x_y", "https://bots.example.com:8443/webhook/123:AAH-x_y"},
	}
	for _, c := range cases {
		got, err := WebhookURL(c.host, c.token)
		require.NoError(t, err, c.host)
		assert.Equal(t, c.want, got, c.host)
	}

	_, err := WebhookURL("admin.example.com", "ABC")
	assert.Error(t, err, "host without scheme")
}

func TestLifecycleError_IsByKind(t *testing.T) {
	err := lifecycleErr(ErrRegistrationFailed, errors.New("boom"))
	assert.ErrorIs(t, err, ErrRegistrationFailed)
	assert.NotErrorIs(t, err, ErrInvalidCredential)
	assert.Equal(t, "registration_failed", err.Kind.String())
	assert.Equal(t, "Webhook setting error. (boom)", err.Error())
}

func TestResolve_LeavesWebhookAlone(t *testing.T) {
	api := &MockBotAPI{}
	api.On("GetMe", mock.Anything, "ABC").Return(telegram.Identity{ID: 111, Username: "shopbot"}, okResp, nil).Once()

	bot, err := Resolve(context.Background(), api, nil, BotSubmission{Token: " ABC "})
	require.NoError(t, err)
	assert.Equal(t, "ABC", bot.Token)
	assert.Equal(t, int64(111), bot.TgID)
	assert.False(t, bot.IsRunning)
	api.AssertNotCalled(t, "SetWebhook", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
