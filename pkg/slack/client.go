// Package slack delivers incident notifications to the chat platform. The
// Client wraps the Slack Web API; the Service layers settings validation and
// dispatch policy on top of it.
package slack

import (
	"context"

	"github.com/slack-go/slack"
)

// API is the subset of the chat platform the service needs. Satisfied by
// Client and stubbed in tests.
type API interface {
	AuthTest(ctx context.Context, token string) (AuthInfo, error)
	PostMessage(ctx context.Context, token, channel, text string) error
}

// AuthInfo identifies the workspace a token belongs to.
type AuthInfo struct {
	Team string
	User string
}

// Client calls the Slack Web API. A fresh API client is built per call so
// token changes take effect immediately.
type Client struct {
	apiURL string
}

// NewClient creates a Slack Web API client.
func NewClient() *Client {
	return &Client{}
}

// NewClientWithAPIURL creates a client pointed at an alternate API base URL,
// used by tests to target a local stub server.
func NewClientWithAPIURL(apiURL string) *Client {
	return &Client{apiURL: apiURL}
}

func (c *Client) api(token string) *slack.Client {
	opts := []slack.Option{}
	if c.apiURL != "" {
		opts = append(opts, slack.OptionAPIURL(c.apiURL))
	}
	return slack.New(token, opts...)
}

// AuthTest validates the token against the Slack auth.test endpoint.
func (c *Client) AuthTest(ctx context.Context, token string) (AuthInfo, error) {
	resp, err := c.api(token).AuthTestContext(ctx)
	if err != nil {
		return AuthInfo{}, err
	}
	return AuthInfo{Team: resp.Team, User: resp.User}, nil
}

// PostMessage sends a plain-text message to the given channel.
func (c *Client) PostMessage(ctx context.Context, token, channel, text string) error {
	_, _, err := c.api(token).PostMessageContext(ctx, channel,
		slack.MsgOptionText(text, false))
	return err
}
