package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/murshop24/admin/internal/models"
)

var ErrBotNotFound = errors.New("bot not found")

// BotService persists bots around the lifecycle transition: a bot row is
// written only after Telegram accepted the token and the webhook.
type BotService struct {
	db       *gorm.DB
	api      BotAPI
	settings WebhookSettings
	log      *zap.Logger
}

func NewBotService(db *gorm.DB, api BotAPI, settings WebhookSettings, log *zap.Logger) *BotService {
	return &BotService{db: db, api: api, settings: settings, log: log.Named("bots")}
}

func (s *BotService) Create(ctx context.Context, sub BotSubmission) (models.TgBot, error) {
	bot, err := s.transition(ctx, nil, sub)
	if err != nil {
		s.log.Info("bot registration rejected", zap.Error(err))
		return models.TgBot{}, err
	}
	if err := s.db.WithContext(ctx).Create(&bot).Error; err != nil {
		return models.TgBot{}, s.saveError(err)
	}
	s.log.Info("bot registered",
		zap.Uint("id", bot.ID),
		zap.Int64("tg_id", bot.TgID),
		zap.String("tg_username", bot.TgUsername),
	)
	return bot, nil
}

func (s *BotService) Update(ctx context.Context, id uint, sub BotSubmission) (models.TgBot, error) {
	prev, err := s.find(ctx, id)
	if err != nil {
		return models.TgBot{}, err
	}
	bot, err := s.transition(ctx, &prev, sub)
	if err != nil {
		s.log.Info("bot update rejected", zap.Uint("id", id), zap.Error(err))
		return models.TgBot{}, err
	}
	if err := s.db.WithContext(ctx).Save(&bot).Error; err != nil {
		return models.TgBot{}, s.saveError(err)
	}
	s.log.Info("bot re-registered",
		zap.Uint("id", bot.ID),
		zap.Int64("tg_id", bot.TgID),
		zap.String("tg_username", bot.TgUsername),
	)
	return bot, nil
}

// Delete always removes the row once it exists; a failed webhook teardown
// is only logged.
func (s *BotService) Delete(ctx context.Context, id uint) error {
	bot, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := Teardown(ctx, s.api, bot); err != nil {
		s.log.Warn("webhook teardown failed",
			zap.Uint("id", bot.ID),
			zap.String("tg_username", bot.TgUsername),
			zap.Error(err),
		)
	}
	// The teardown may have eaten the request deadline; the row still goes.
	return s.db.WithContext(context.WithoutCancel(ctx)).Delete(&bot).Error
}

// transition is Transition with a duplicate check between resolving the
// token and moving the webhook: a bot registered under another row keeps
// its webhook.
func (s *BotService) transition(ctx context.Context, prev *models.TgBot, sub BotSubmission) (models.TgBot, error) {
	bot, err := Resolve(ctx, s.api, prev, sub)
	if err != nil {
		return models.TgBot{}, err
	}
	if err := s.checkDuplicate(ctx, bot); err != nil {
		return models.TgBot{}, err
	}
	return Register(ctx, s.api, s.settings, bot)
}

func (s *BotService) checkDuplicate(ctx context.Context, bot models.TgBot) error {
	var other models.TgBot
	err := s.db.WithContext(ctx).
		Where("(tg_id = ? OR token = ?) AND id <> ?", bot.TgID, bot.Token, bot.ID).
		Take(&other).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil
	case err != nil:
		return err
	}
	return lifecycleErr(ErrDuplicate, fmt.Errorf("tg_id %d already stored as bot %d", bot.TgID, other.ID))
}

func (s *BotService) find(ctx context.Context, id uint) (models.TgBot, error) {
	var bot models.TgBot
	if err := s.db.WithContext(ctx).First(&bot, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.TgBot{}, ErrBotNotFound
		}
		return models.TgBot{}, err
	}
	return bot, nil
}

// saveError maps a unique violation that slipped past checkDuplicate, such as
// two concurrent creates of the same bot.
func (s *BotService) saveError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return lifecycleErr(ErrDuplicate, err)
	}
	s.log.Error("bot save failed", zap.Error(err))
	return err
}
