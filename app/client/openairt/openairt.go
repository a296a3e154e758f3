package openairt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"pitchlab/app/config"

	"github.com/samber/do"
)

// Client talks to the hosted realtime voice endpoint: it mints short-lived
// session credentials with the server-held API key and performs the SDP
// offer/answer exchange. The long-lived key never leaves this process.
type Client struct {
	cfg        *config.Config
	httpClient *http.Client
}

func NewClient(di *do.Injector) (*Client, error) {
	return &Client{
		cfg: do.MustInvoke[*config.Config](di),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

type EphemeralToken struct {
	Value     string
	ExpiresAt time.Time
}

type sessionRequest struct {
	Model        string `json:"model"`
	Voice        string `json:"voice"`
	Instructions string `json:"instructions,omitempty"`
}

type sessionResponse struct {
	ClientSecret struct {
		Value     string `json:"value"`
		ExpiresAt int64  `json:"expires_at"`
	} `json:"client_secret"`
	Error *ErrorDetail `json:"error"`
}

// MintSession creates a realtime session and returns its ephemeral token.
func (c *Client) MintSession(ctx context.Context, instructions string) (*EphemeralToken, error) {
	body, err := json.Marshal(sessionRequest{
		Model:        c.cfg.OpenAI.Realtime.Model,
		Voice:        c.cfg.OpenAI.Realtime.Voice,
		Instructions: instructions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session request: %w", err)
	}

	url := strings.TrimSuffix(c.cfg.OpenAI.Realtime.BaseURL, "/") + "/sessions"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create session request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.OpenAI.Realtime.Token)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &StageError{Stage: StageCredential, Err: err}
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &StageError{Stage: StageCredential, Err: err}
	}

	var parsed sessionResponse
	parseErr := json.Unmarshal(data, &parsed)

	if res.StatusCode != http.StatusOK {
		// failure bodies are not always JSON, keep the status either way
		msg := strings.TrimSpace(string(data))
		if parseErr == nil && parsed.Error != nil && parsed.Error.Message != "" {
			msg = parsed.Error.Message
		}
		return nil, &StageError{
			Stage: StageCredential,
			Err:   fmt.Errorf("session minting failed (status %d): %s", res.StatusCode, msg),
		}
	}

	if parseErr != nil {
		return nil, &StageError{
			Stage: StageCredential,
			Err:   fmt.Errorf("failed to parse session response: %w", parseErr),
		}
	}

	if parsed.ClientSecret.Value == "" {
		return nil, &StageError{
			Stage: StageCredential,
			Err:   fmt.Errorf("session response is missing client secret"),
		}
	}

	return &EphemeralToken{
		Value:     parsed.ClientSecret.Value,
		ExpiresAt: time.Unix(parsed.ClientSecret.ExpiresAt, 0),
	}, nil
}

// ExchangeSDP posts a local offer authorized by the ephemeral token and
// returns the remote answer.
func (c *Client) ExchangeSDP(ctx context.Context, token, offerSDP string) (string, error) {
	url := c.cfg.OpenAI.Realtime.BaseURL + "?model=" + c.cfg.OpenAI.Realtime.Model

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(offerSDP))
	if err != nil {
		return "", fmt.Errorf("failed to create SDP request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/sdp")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return "", &StageError{Stage: StageNegotiation, Err: err}
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return "", &StageError{Stage: StageNegotiation, Err: err}
	}

	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusCreated {
		return "", &StageError{
			Stage: StageNegotiation,
			Err:   fmt.Errorf("SDP exchange failed (status %d): %s", res.StatusCode, string(data)),
		}
	}

	return string(data), nil
}
