package cloud

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"

	"github.com/google/uuid"
)

const (
	pathLogin     = "/api/v5/account/login"
	pathVerifyPIN = "/api/v4/account/{accountID}/client/{clientID}/pin/verify"
	pathLogout    = "/api/v4/account/{accountID}/client/{clientID}/logout"

	clientType = "android"
)

type loginRequest struct {
	Email            string `json:"email"`
	Password         string `json:"password"`
	UniqueID         string `json:"unique_id"`
	ClientName       string `json:"client_name"`
	ClientType       string `json:"client_type"`
	DeviceIdentifier string `json:"device_identifier"`
	AppVersion       string `json:"app_version"`
	OSVersion        string `json:"os_version"`
	Reauth           bool   `json:"reauth"`
}

type loginResponse struct {
	Account struct {
		AccountID                  int64  `json:"account_id"`
		ClientID                   int64  `json:"client_id"`
		Tier                       string `json:"tier"`
		Region                     string `json:"region"`
		ClientVerificationRequired bool   `json:"client_verification_required"`
	} `json:"account"`
	Auth struct {
		Token string `json:"token"`
	} `json:"auth"`
}

type verifyResponse struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}

func newClientUUID() string {
	return uuid.New().String()
}

// ClientUUID returns the installation identifier sent on login.
func (c *Client) ClientUUID() string {
	return c.opts.Credentials.ClientUUID
}

// Login authenticates the session. Without force it is a no-op while a
// token is held. When the account demands client verification the
// configured PIN is submitted automatically.
func (c *Client) Login(ctx context.Context, force bool) error {
	c.loginMu.Lock()
	defer c.loginMu.Unlock()

	if !force && c.session.Snapshot().Authenticated() {
		return nil
	}

	creds := c.opts.Credentials
	if creds.Email == "" || creds.Password == "" {
		return ErrNoCredentials
	}

	name := creds.DeviceName
	if name == "" {
		name = "blinksync"
	}

	resp, err := c.do(ctx, http.MethodPost, pathLogin, loginRequest{
		Email:            creds.Email,
		Password:         creds.Password,
		UniqueID:         creds.ClientUUID,
		ClientName:       name,
		ClientType:       clientType,
		DeviceIdentifier: name,
		AppVersion:       c.opts.AppVersion,
		OSVersion:        runtime.GOOS,
		Reauth:           true,
	}, false)
	if err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && (httpErr.Status == http.StatusUnauthorized || httpErr.Status == http.StatusForbidden) {
			return fmt.Errorf("%w: %s", ErrInvalidCredentials, httpErr.Message())
		}
		return fmt.Errorf("login: %w", err)
	}

	var body loginResponse
	if err := resp.Decode(&body); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if body.Auth.Token == "" {
		return fmt.Errorf("%w: login response carried no token", ErrInvalidCredentials)
	}

	region := body.Account.Tier
	if region == "" {
		region = body.Account.Region
	}
	c.session.set(SessionInfo{
		Token:     body.Auth.Token,
		AccountID: body.Account.AccountID,
		ClientID:  body.Account.ClientID,
		Region:    region,
	})
	c.observer.ObserveLogin()

	if body.Account.ClientVerificationRequired {
		if creds.PIN == "" {
			c.session.reset()
			return ErrVerificationRequired
		}
		if err := c.verifyPIN(ctx, creds.PIN); err != nil {
			c.session.reset()
			return err
		}
	}

	c.logger.Info("cloud login succeeded",
		"account_id", body.Account.AccountID,
		"client_id", body.Account.ClientID,
		"region", region)
	return nil
}

// verifyPIN submits the client verification PIN. Callers hold loginMu.
func (c *Client) verifyPIN(ctx context.Context, pin string) error {
	resp, err := c.do(ctx, http.MethodPost, pathVerifyPIN, map[string]string{"pin": pin}, false)
	if err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) {
			return fmt.Errorf("%w: %s", ErrInvalidPIN, httpErr.Message())
		}
		return fmt.Errorf("verify pin: %w", err)
	}

	var body verifyResponse
	if err := resp.Decode(&body); err != nil {
		return fmt.Errorf("verify pin: %w", err)
	}
	if !body.Valid {
		return fmt.Errorf("%w: %s", ErrInvalidPIN, body.Message)
	}
	return nil
}

// Logout ends the cloud session and drops all cached responses.
func (c *Client) Logout(ctx context.Context) error {
	c.loginMu.Lock()
	defer c.loginMu.Unlock()

	var err error
	if c.session.Snapshot().Authenticated() {
		_, err = c.do(ctx, http.MethodPost, pathLogout, nil, false)
	}
	c.session.reset()
	c.cache.Clear()
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}
