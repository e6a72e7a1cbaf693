// SPDX-License-Identifier: MIT

// Package session performs the login handshake that yields a guide session.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/domevanzy/Zattoo-EPG/internal/log"
	"github.com/domevanzy/Zattoo-EPG/internal/zapi"
)

// Region is a service region code.
type Region string

const (
	RegionDE Region = "DE"
	RegionCH Region = "CH"
)

// ParseRegion accepts a region code in any case.
func ParseRegion(s string) (Region, error) {
	switch r := Region(strings.ToUpper(strings.TrimSpace(s))); r {
	case RegionDE, RegionCH:
		return r, nil
	default:
		return "", fmt.Errorf("unsupported region %q (supported: DE, CH)", s)
	}
}

// Credentials are the account login.
type Credentials struct {
	Email    string
	Password string
}

// Session is the immutable result of a successful handshake.
type Session struct {
	Region    Region
	AppToken  string
	SessionID string
	GuideHash string
}

// Client is the subset of the upstream API used by Authenticate.
type Client interface {
	Probe(ctx context.Context) error
	Token(ctx context.Context) (string, error)
	Hello(ctx context.Context, appToken, deviceUUID string) (string, error)
	Login(ctx context.Context, login, password string) (zapi.LoginSession, error)
}

// Options tune Authenticate.
type Options struct {
	DeviceUUID string
	SkipProbe  bool
}

// Authenticate runs probe, token, hello and login. Every failure is terminal
// and returned as *AuthError.
func Authenticate(ctx context.Context, c Client, region Region, creds Credentials, opts Options) (Session, error) {
	logger := log.WithComponentFromContext(ctx, "session")
	start := time.Now()
	logger.Info().
		Str(log.FieldEvent, "auth.start").
		Str(log.FieldRegion, string(region)).
		Str("email", log.MaskEmail(creds.Email)).
		Msg("authenticating")

	if !opts.SkipProbe {
		if err := c.Probe(ctx); err != nil {
			return Session{}, authFailure(ReasonUnreachable, "probe", err)
		}
	}

	token, err := c.Token(ctx)
	if err != nil {
		return Session{}, authFailure(reasonFor(err), "token", err)
	}

	sid, err := c.Hello(ctx, token, opts.DeviceUUID)
	if err != nil {
		reason := reasonFor(err)
		if reason == ReasonMalformed {
			reason = ReasonNoSession
		}
		return Session{}, authFailure(reason, "hello", err)
	}

	login, err := c.Login(ctx, creds.Email, creds.Password)
	if err != nil {
		reason := reasonFor(err)
		if errors.Is(err, zapi.ErrUnauthorized) || errors.Is(err, zapi.ErrNotSuccessful) {
			reason = ReasonRejected
		}
		return Session{}, authFailure(reason, "login", err)
	}

	if got := Region(strings.ToUpper(login.ServiceRegionCountry)); got != region {
		return Session{}, &AuthError{
			Reason: ReasonRegionMismatch,
			Step:   "login",
			Detail: fmt.Sprintf("expected %s, got %q", region, login.ServiceRegionCountry),
		}
	}
	if login.PowerGuideHash == "" {
		return Session{}, &AuthError{Reason: ReasonMissingGuideHash, Step: "login"}
	}

	logger.Info().
		Str(log.FieldEvent, "auth.ok").
		Str(log.FieldRegion, string(region)).
		Int64(log.FieldElapsed, time.Since(start).Milliseconds()).
		Msg("authenticated")

	return Session{
		Region:    region,
		AppToken:  token,
		SessionID: sid,
		GuideHash: login.PowerGuideHash,
	}, nil
}

func authFailure(reason Reason, step string, err error) *AuthError {
	return &AuthError{Reason: reason, Step: step, Err: err}
}

// reasonFor maps upstream errors onto auth failure reasons.
func reasonFor(err error) Reason {
	switch {
	case errors.Is(err, zapi.ErrBadResponse), errors.Is(err, zapi.ErrNotSuccessful):
		return ReasonMalformed
	case errors.Is(err, zapi.ErrUnauthorized):
		return ReasonRejected
	default:
		return ReasonUnreachable
	}
}
