package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/murshop24/admin/internal/models"
	"github.com/murshop24/admin/internal/telegram"
)

// WebhookPath is where the shop bots receive Telegram pushes, relative to
// WebhookSettings.Host.
const WebhookPath = "/webhook/{bot_token}"

// BotAPI is the slice of the Telegram Bot API the lifecycle needs.
type BotAPI interface {
	GetMe(ctx context.Context, token string) (telegram.Identity, telegram.Response, error)
	SetWebhook(ctx context.Context, token, callbackURL, secretToken string) (telegram.Response, error)
	DeleteWebhook(ctx context.Context, token string) (telegram.Response, error)
}

// WebhookSettings is fixed for the process lifetime.
type WebhookSettings struct {
	Host        string
	SecretToken string
}

// BotSubmission is what an admin can set on the bot form.
type BotSubmission struct {
	Token              string
	TgOperatorID       *uint
	TgReviewsChannelID *uint
}

type ErrorKind int

const (
	InvalidCredential ErrorKind = iota + 1
	IdentityMismatch
	RegistrationFailed
	TransportFailure
	Duplicate
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidCredential:
		return "invalid_credential"
	case IdentityMismatch:
		return "identity_mismatch"
	case RegistrationFailed:
		return "registration_failed"
	case TransportFailure:
		return "transport_failure"
	case Duplicate:
		return "duplicate"
	}
	return "unknown"
}

// LifecycleError rejects a bot create/update. Message is shown to the
// operator as-is.
type LifecycleError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *LifecycleError) Error() string {
	if e.Err != nil {
		return e.Message + " (" + e.Err.Error() + ")"
	}
	return e.Message
}

func (e *LifecycleError) Unwrap() error { return e.Err }

// Is matches any LifecycleError of the same kind, so the sentinels below work
// with errors.Is.
func (e *LifecycleError) Is(target error) bool {
	t, ok := target.(*LifecycleError)
	return ok && t.Kind == e.Kind
}

var (
	ErrInvalidCredential  = &LifecycleError{Kind: InvalidCredential, Message: "Invalid token."}
	ErrIdentityMismatch   = &LifecycleError{Kind: IdentityMismatch, Message: "The new token does not belong to the previous bot."}
	ErrRegistrationFailed = &LifecycleError{Kind: RegistrationFailed, Message: "Webhook setting error."}
	ErrTransportFailure   = &LifecycleError{Kind: TransportFailure, Message: "Telegram API is unreachable, try again."}
	ErrDuplicate          = &LifecycleError{Kind: Duplicate, Message: "This bot is already registered."}
)

func lifecycleErr(sentinel *LifecycleError, cause error) *LifecycleError {
	return &LifecycleError{Kind: sentinel.Kind, Message: sentinel.Message, Err: cause}
}

// Transition validates a submitted bot against Telegram and points its
// webhook at us. prev is nil for a new bot. The returned record is ready to
// persist; prev is left untouched, so on error nothing needs undoing.
func Transition(ctx context.Context, api BotAPI, settings WebhookSettings, prev *models.TgBot, sub BotSubmission) (models.TgBot, error) {
	next, err := Resolve(ctx, api, prev, sub)
	if err != nil {
		return models.TgBot{}, err
	}
	return Register(ctx, api, settings, next)
}

// Resolve asks Telegram who the submitted token belongs to and builds the
// candidate record. Nothing is changed on Telegram's side.
func Resolve(ctx context.Context, api BotAPI, prev *models.TgBot, sub BotSubmission) (models.TgBot, error) {
	token := strings.TrimSpace(sub.Token)
	if token == "" {
		return models.TgBot{}, ErrInvalidCredential
	}

	identity, resp, err := api.GetMe(ctx, token)
	if err != nil {
		return models.TgBot{}, lifecycleErr(ErrTransportFailure, err)
	}
	if !resp.OK {
		return models.TgBot{}, lifecycleErr(ErrInvalidCredential, apiError("getMe", resp))
	}
	if prev != nil && prev.TgID != identity.ID {
		return models.TgBot{}, lifecycleErr(ErrIdentityMismatch,
			fmt.Errorf("token resolves to %d, bot is %d", identity.ID, prev.TgID))
	}

	var next models.TgBot
	if prev != nil {
		next = *prev
	}
	next.Token = token
	next.TgID = identity.ID
	next.TgUsername = identity.Username
	next.TgOperatorID = sub.TgOperatorID
	next.TgOperator = nil
	next.TgReviewsChannelID = sub.TgReviewsChannelID
	next.TgReviewsChannel = nil
	return next, nil
}

// Register points the resolved bot's webhook at us and marks it running.
func Register(ctx context.Context, api BotAPI, settings WebhookSettings, bot models.TgBot) (models.TgBot, error) {
	callback, err := WebhookURL(settings.Host, bot.Token)
	if err != nil {
		return models.TgBot{}, lifecycleErr(ErrRegistrationFailed, err)
	}
	resp, err := api.SetWebhook(ctx, bot.Token, callback, settings.SecretToken)
	if err != nil {
		return models.TgBot{}, lifecycleErr(ErrTransportFailure, err)
	}
	if !resp.OK {
		return models.TgBot{}, lifecycleErr(ErrRegistrationFailed, apiError("setWebhook", resp))
	}

	bot.IsRunning = true
	return bot, nil
}

// Teardown removes the bot's webhook. Callers delete the bot whatever this
// returns.
func Teardown(ctx context.Context, api BotAPI, bot models.TgBot) error {
	resp, err := api.DeleteWebhook(ctx, bot.Token)
	if err != nil {
		return err
	}
	if !resp.OK {
		return apiError("deleteWebhook", resp)
	}
	return nil
}

// WebhookURL resolves WebhookPath for token against host the way a browser
// resolves an absolute-path link: any path on host is replaced.
func WebhookURL(host, token string) (string, error) {
	base, err := url.Parse(host)
	if err != nil {
		return "", fmt.Errorf("webhook host: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return "", fmt.Errorf("webhook host %q is not an absolute URL", host)
	}
	path := strings.Replace(WebhookPath, "{bot_token}", url.PathEscape(token), 1)
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("webhook path: %w", err)
	}
	return base.ResolveReference(ref).String(), nil
}

func apiError(method string, resp telegram.Response) error {
	if resp.Description == "" {
		return errors.New(method + ": not ok")
	}
	return fmt.Errorf("%s: %d %s", method, resp.ErrorCode, resp.Description)
}
