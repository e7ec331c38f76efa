package synthesis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	apperrors "github.com/JiaLong0209/discord-ai-assistant-bot/pkg/errors"
	"github.com/JiaLong0209/discord-ai-assistant-bot/pkg/logger"
	"go.uber.org/zap"
)

// Client talks to a VOICEVOX engine instance. Synthesis is two calls:
//
//  1. POST /audio_query?speaker=N&text=... to obtain a synthesis query JSON
//  2. POST /synthesis?speaker=N with that JSON to get WAV audio
type Client struct {
	baseURL string
	http    *http.Client
	catalog *Catalog
	tuning  *Tuning
	logger  *zap.Logger
}

// NewClient creates a synthesis client for the engine at baseURL.
func NewClient(baseURL string, catalog *Catalog, tuning *Tuning) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 60 * time.Second},
		catalog: catalog,
		tuning:  tuning,
		logger:  logger.Get(),
	}
}

// Catalog returns the speaker catalog the client validates against.
func (c *Client) Catalog() *Catalog {
	return c.catalog
}

// Tuning returns the mutable synthesis knobs.
func (c *Client) Tuning() *Tuning {
	return c.tuning
}

// Synthesize converts text into WAV bytes using the given speaker id. The id
// is validated against the catalog before any network call is made.
func (c *Client) Synthesize(ctx context.Context, text string, speakerID int) ([]byte, error) {
	if !c.catalog.Contains(speakerID) {
		return nil, apperrors.ErrInvalidSpeaker
	}
	if text == "" {
		return nil, apperrors.NewSynthesisError("nothing to synthesize", nil)
	}

	start := time.Now()

	query, err := c.audioQuery(ctx, text, speakerID)
	if err != nil {
		return nil, apperrors.NewSynthesisError("audio query failed", err)
	}
	c.tuning.applyToQuery(query)

	wav, err := c.synthesis(ctx, query, speakerID)
	if err != nil {
		return nil, apperrors.NewSynthesisError("synthesis failed", err)
	}

	c.logger.Debug("Synthesized speech",
		zap.Int("speaker_id", speakerID),
		zap.Int("text_len", len(text)),
		zap.Int("wav_bytes", len(wav)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return wav, nil
}

func (c *Client) audioQuery(ctx context.Context, text string, speakerID int) (map[string]interface{}, error) {
	params := url.Values{}
	params.Set("speaker", strconv.Itoa(speakerID))
	params.Set("text", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio_query?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("audio_query returned %d: %s", resp.StatusCode, body)
	}

	var query map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&query); err != nil {
		return nil, fmt.Errorf("decode audio query: %w", err)
	}
	return query, nil
}

func (c *Client) synthesis(ctx context.Context, query map[string]interface{}, speakerID int) ([]byte, error) {
	payload, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("speaker", strconv.Itoa(speakerID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/synthesis?"+params.Encode(), bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("synthesis returned %d: %s", resp.StatusCode, body)
	}

	wav, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(wav) == 0 {
		return nil, fmt.Errorf("synthesis returned empty audio")
	}
	return wav, nil
}
