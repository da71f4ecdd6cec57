package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Identity is what getMe reports about a bot.
type Identity struct {
	ID       int64
	Username string
}

// Response is the envelope every Bot API method answers with. OK=false is a
// normal outcome here; the caller decides what it means.
type Response struct {
	OK          bool
	ErrorCode   int
	Description string
}

// TransportError means Telegram could not be reached or answered with
// something that is not a Bot API envelope.
type TransportError struct {
	Method string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("telegram %s: %v", e.Method, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Client issues getMe / setWebhook / deleteWebhook on behalf of any bot token.
// It holds no per-bot state.
type Client struct {
	httpc    *http.Client
	endpoint string
}

// NewClient returns a client hitting endpoint, a fmt template taking the
// token and the method name (tgbotapi.APIEndpoint when empty).
func NewClient(endpoint string, timeout time.Duration) *Client {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	return &Client{
		httpc:    &http.Client{Timeout: timeout},
		endpoint: endpoint,
	}
}

func (c *Client) GetMe(ctx context.Context, token string) (Identity, Response, error) {
	apiResp, resp, err := c.call(ctx, token, "getMe", nil)
	if err != nil || !resp.OK {
		return Identity{}, resp, err
	}
	var u tgbotapi.User
	if err := json.Unmarshal(apiResp.Result, &u); err != nil {
		return Identity{}, resp, &TransportError{Method: "getMe", Err: err}
	}
	return Identity{ID: u.ID, Username: u.UserName}, resp, nil
}

func (c *Client) SetWebhook(ctx context.Context, token, callbackURL, secretToken string) (Response, error) {
	_, resp, err := c.call(ctx, token, "setWebhook", tgbotapi.Params{
		"url":          callbackURL,
		"secret_token": secretToken,
	})
	return resp, err
}

func (c *Client) DeleteWebhook(ctx context.Context, token string) (Response, error) {
	_, resp, err := c.call(ctx, token, "deleteWebhook", nil)
	return resp, err
}

func (c *Client) call(ctx context.Context, token, method string, params tgbotapi.Params) (*tgbotapi.APIResponse, Response, error) {
	api := &tgbotapi.BotAPI{
		Token:  token,
		Client: ctxClient{ctx: ctx, base: c.httpc},
		Buffer: 100,
	}
	api.SetAPIEndpoint(c.endpoint)

	apiResp, err := api.MakeRequest(method, params)
	if err != nil {
		var apiErr *tgbotapi.Error
		if errors.As(err, &apiErr) {
			return apiResp, Response{OK: false, ErrorCode: apiErr.Code, Description: apiErr.Message}, nil
		}
		return nil, Response{}, &TransportError{Method: method, Err: err}
	}
	return apiResp, Response{OK: apiResp.Ok, ErrorCode: apiResp.ErrorCode, Description: apiResp.Description}, nil
}

// ctxClient binds a request context to tgbotapi's context-less requests.
type ctxClient struct {
	ctx  context.Context
	base *http.Client
}

func (c ctxClient) Do(req *http.Request) (*http.Response, error) {
	return c.base.Do(req.WithContext(c.ctx))
}
