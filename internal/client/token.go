package client

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/oauth2"
)

const (
	DefaultTokenURL = "https://api.amazon.com/auth/o2/token"

	defaultTokenLifetime = 3600 * time.Second
)

type credential struct {
	accessToken string
	expiresAt   time.Time
}

// accessToken returns the cached token while it is still valid and refreshes
// it otherwise.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	if c.cred != nil && c.cred.expiresAt.After(c.now()) {
		return c.cred.accessToken, nil
	}
	if err := c.refreshAccessToken(ctx); err != nil {
		return "", err
	}
	return c.cred.accessToken, nil
}

func (c *Client) refreshAccessToken(ctx context.Context) error {
	c.logger.Info("refreshing access token")

	var tok *oauth2.Token
	err := c.retry(ctx, func() error {
		t, err := c.exchange(ctx)
		if err != nil {
			return err
		}
		tok = t
		return nil
	})
	if err != nil {
		return err
	}

	c.metrics.TokenRefreshed()
	c.cred = &credential{
		accessToken: tok.AccessToken,
		expiresAt:   c.now().Add(tokenLifetime(tok)),
	}
	return nil
}

// exchange trades the refresh token for a fresh access token. A new token
// source per call keeps x/oauth2 from caching anything behind our back.
func (c *Client) exchange(ctx context.Context) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.tokenHTTP)

	src := c.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: c.cfg.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		var rErr *oauth2.RetrieveError
		if errors.As(err, &rErr) && rErr.Response != nil {
			if apiErr := RaiseForStatus(rErr.Response.StatusCode, rErr.Body); apiErr != nil {
				return nil, apiErr
			}
		}
		if ctx.Err() == nil && isTransportFault(err) {
			return nil, &transportError{err: err}
		}
		return nil, fmt.Errorf("refresh access token: %w", err)
	}
	return tok, nil
}

func tokenLifetime(tok *oauth2.Token) time.Duration {
	var seconds float64
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		seconds = v
	case int64:
		seconds = float64(v)
	case int:
		seconds = float64(v)
	case json.Number:
		seconds, _ = v.Float64()
	case string:
		seconds, _ = strconv.ParseFloat(v, 64)
	}
	if seconds <= 0 {
		return defaultTokenLifetime
	}
	return time.Duration(seconds * float64(time.Second))
}
