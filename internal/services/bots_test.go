package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/murshop24/admin/internal/db"
	"github.com/murshop24/admin/internal/models"
	"github.com/murshop24/admin/internal/telegram"
)

// openTestDB returns an isolated in-file SQLite database in a temp directory.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db") + "?_foreign_keys=on"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	return gdb
}

func newBotService(t *testing.T) (*BotService, *MockBotAPI, *gorm.DB) {
	t.Helper()
	gdb := openTestDB(t)
	api := &MockBotAPI{}
	return NewBotService(gdb, api, settings, zap.NewNop()), api, gdb
}

func expectRegistration(api *MockBotAPI, token string, id int64, username string) {
	api.On("GetMe", mock.Anything, token).Return(telegram.Identity{ID: id, Username: username}, okResp, nil).Once()
	api.On("SetWebhook", mock.Anything, token, "https://admin.example.com/webhook/"+token, "s3cret").Return(okResp, nil).Once()
}

func TestBotService_CreatePersists(t *testing.T) {
	svc, api, gdb := newBotService(t)
	expectRegistration(api, "ABC", 111, "shopbot")

	created, err := svc.Create(context.Background(), BotSubmission{Token: "ABC"})
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	var stored models.TgBot
	require.NoError(t, gdb.First(&stored, created.ID).Error)
	assert.Equal(t, "ABC", stored.Token)
	assert.Equal(t, int64(111), stored.TgID)
	assert.Equal(t, "shopbot", stored.TgUsername)
	assert.True(t, stored.IsRunning)
	api.AssertExpectations(t)
}

func TestBotService_CreateFailuresPersistNothing(t *testing.T) {
	cases := map[string]func(api *MockBotAPI){
		"invalid token": func(api *MockBotAPI) {
			api.On("GetMe", mock.Anything, "ABC").Return(telegram.Identity{}, notOK, nil).Once()
		},
		"webhook rejected": func(api *MockBotAPI) {
			api.On("GetMe", mock.Anything, "ABC").Return(telegram.Identity{ID: 111, Username: "shopbot"}, okResp, nil).Once()
			api.On("SetWebhook", mock.Anything, "ABC", mock.Anything, mock.Anything).Return(notOK, nil).Once()
		},
		"unreachable": func(api *MockBotAPI) {
			api.On("GetMe", mock.Anything, "ABC").
				Return(telegram.Identity{}, telegram.Response{}, &telegram.TransportError{Method: "getMe", Err: errors.New("timeout")}).Once()
		},
	}
	for name, setup := range cases {
		t.Run(name, func(t *testing.T) {
			svc, api, gdb := newBotService(t)
			setup(api)

			_, err := svc.Create(context.Background(), BotSubmission{Token: "ABC"})
			var le *LifecycleError
			require.ErrorAs(t, err, &le)

			var n int64
			require.NoError(t, gdb.Model(&models.TgBot{}).Count(&n).Error)
			assert.Zero(t, n)
		})
	}
}

func TestBotService_UpdateMismatchKeepsRow(t *testing.T) {
	svc, api, gdb := newBotService(t)
	expectRegistration(api, "OLD", 111, "shopbot")
	created, err := svc.Create(context.Background(), BotSubmission{Token: "OLD"})
	require.NoError(t, err)

	api.On("GetMe", mock.Anything, "NEW").Return(telegram.Identity{ID: 222, Username: "other"}, okResp, nil).Once()
	_, err = svc.Update(context.Background(), created.ID, BotSubmission{Token: "NEW"})
	require.ErrorIs(t, err, ErrIdentityMismatch)

	var stored models.TgBot
	require.NoError(t, gdb.First(&stored, created.ID).Error)
	assert.Equal(t, "OLD", stored.Token)
	assert.Equal(t, int64(111), stored.TgID)
}

func TestBotService_UpdateRotatesToken(t *testing.T) {
	svc, api, gdb := newBotService(t)
	op := models.TgOperator{TgUsername: "op1"}
	require.NoError(t, gdb.Create(&op).Error)

	expectRegistration(api, "OLD", 111, "shopbot")
	created, err := svc.Create(context.Background(), BotSubmission{Token: "OLD"})
	require.NoError(t, err)

	expectRegistration(api, "NEW", 111, "shopbot2")
	_, err = svc.Update(context.Background(), created.ID, BotSubmission{Token: "NEW", TgOperatorID: &op.ID})
	require.NoError(t, err)

	var stored models.TgBot
	require.NoError(t, gdb.Preload("TgOperator").First(&stored, created.ID).Error)
	assert.Equal(t, "NEW", stored.Token)
	assert.Equal(t, "shopbot2", stored.TgUsername)
	require.NotNil(t, stored.TgOperator)
	assert.Equal(t, "op1", stored.TgOperator.TgUsername)
	api.AssertExpectations(t)
}

func TestBotService_UpdateMissing(t *testing.T) {
	svc, _, _ := newBotService(t)
	_, err := svc.Update(context.Background(), 42, BotSubmission{Token: "ABC"})
	assert.ErrorIs(t, err, ErrBotNotFound)
}

// A second row for an already registered bot is refused before the live
// webhook is touched, whether the token is the same or a fresh one.
func TestBotService_CreateDuplicate(t *testing.T) {
	for name, token := range map[string]string{"same token": "111:OLD", "new token": "111:NEW"} {
		t.Run(name, func(t *testing.T) {
			svc, api, gdb := newBotService(t)
			existing := models.TgBot{Token: "111:OLD", TgID: 111, TgUsername: "shopbot", IsRunning: true}
			require.NoError(t, gdb.Create(&existing).Error)

			api.On("GetMe", mock.Anything, token).Return(telegram.Identity{ID: 111, Username: "shopbot"}, okResp, nil).Once()
			_, err := svc.Create(context.Background(), BotSubmission{Token: token})
			assert.ErrorIs(t, err, ErrDuplicate)
			api.AssertNotCalled(t, "SetWebhook", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

			var stored models.TgBot
			require.NoError(t, gdb.First(&stored, existing.ID).Error)
			assert.Equal(t, "111:OLD", stored.Token)
		})
	}
}

// Rotating to a token another row already holds is refused the same way.
func TestBotService_UpdateDuplicateToken(t *testing.T) {
	svc, api, gdb := newBotService(t)
	mine := models.TgBot{Token: "111:OLD", TgID: 111}
	require.NoError(t, gdb.Create(&mine).Error)
	// A stale row whose token Telegram now reports under bot 111.
	other := models.TgBot{Token: "111:NEW", TgID: 999}
	require.NoError(t, gdb.Create(&other).Error)

	api.On("GetMe", mock.Anything, "111:NEW").Return(telegram.Identity{ID: 111, Username: "shopbot"}, okResp, nil).Once()
	_, err := svc.Update(context.Background(), mine.ID, BotSubmission{Token: "111:NEW"})
	assert.ErrorIs(t, err, ErrDuplicate)
	api.AssertNotCalled(t, "SetWebhook", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// Re-saving a bot with its own token is not a duplicate of itself.
func TestBotService_UpdateSameTokenIsNotDuplicate(t *testing.T) {
	svc, api, gdb := newBotService(t)
	bot := models.TgBot{Token: "ABC", TgID: 111}
	require.NoError(t, gdb.Create(&bot).Error)

	expectRegistration(api, "ABC", 111, "shopbot")
	_, err := svc.Update(context.Background(), bot.ID, BotSubmission{Token: "ABC"})
	require.NoError(t, err)
	api.AssertExpectations(t)
}

func TestBotService_SaveErrorMapsUniqueViolation(t *testing.T) {
	svc, _, _ := newBotService(t)
	assert.ErrorIs(t, svc.saveError(gorm.ErrDuplicatedKey), ErrDuplicate)
	assert.NotErrorIs(t, svc.saveError(errors.New("disk full")), ErrDuplicate)
}

func TestBotService_DeleteAlwaysRemoves(t *testing.T) {
	outcomes := map[string]func(api *MockBotAPI){
		"ok": func(api *MockBotAPI) {
			api.On("DeleteWebhook", mock.Anything, "ABC").Return(okResp, nil).Once()
		},
		"not ok": func(api *MockBotAPI) {
			api.On("DeleteWebhook", mock.Anything, "ABC").Return(notOK, nil).Once()
		},
		"timeout": func(api *MockBotAPI) {
			api.On("DeleteWebhook", mock.Anything, "ABC").
				Return(telegram.Response{}, &telegram.TransportError{Method: "deleteWebhook", Err: context.DeadlineExceeded}).Once()
		},
	}
	for name, setup := range outcomes {
		t.Run(name, func(t *testing.T) {
			svc, api, gdb := newBotService(t)
			bot := models.TgBot{Token: "ABC", TgID: 111, TgUsername: "shopbot", IsRunning: true}
			require.NoError(t, gdb.Create(&bot).Error)
			setup(api)

			require.NoError(t, svc.Delete(context.Background(), bot.ID))

			var n int64
			require.NoError(t, gdb.Model(&models.TgBot{}).Count(&n).Error)
			assert.Zero(t, n)
			api.AssertExpectations(t)
		})
	}
}

// Even a request whose context is already done gets its row removed.
func TestBotService_DeleteAfterDeadline(t *testing.T) {
	svc, api, gdb := newBotService(t)
	bot := models.TgBot{Token: "ABC", TgID: 111}
	require.NoError(t, gdb.Create(&bot).Error)

	ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
	api.On("DeleteWebhook", mock.Anything, "ABC").
		Run(func(mock.Arguments) { cancel() }).
		Return(telegram.Response{}, &telegram.TransportError{Method: "deleteWebhook", Err: context.Canceled}).Once()

	require.NoError(t, svc.Delete(ctx, bot.ID))
	var n int64
	require.NoError(t, gdb.Model(&models.TgBot{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestBotService_DeleteMissing(t *testing.T) {
	svc, api, _ := newBotService(t)
	assert.ErrorIs(t, svc.Delete(context.Background(), 9), ErrBotNotFound)
	api.AssertNotCalled(t, "DeleteWebhook", mock.Anything, mock.Anything)
}
