// Package tts implements speech synthesis over an ElevenLabs-style API
// with a content-addressed on-disk cache. Voice lines repeat constantly
// (greetings, reminders, decline reasons), so cache hits skip the network
// entirely.
package tts

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/kredefy/backend/pkg/config"
	"github.com/kredefy/backend/pkg/ports"
	"github.com/kredefy/backend/pkg/resilience"
)

// Client synthesizes speech and caches the resulting audio by content hash.
type Client struct {
	httpClient *http.Client
	settings   config.TTSSettings
	voices     map[string]string
	breaker    *resilience.Breaker
	retry      resilience.RetryConfig
}

// NewClient creates a synthesis client. voices maps language codes to voice
// IDs; unknown languages fall back to the English voice.
func NewClient(settings config.TTSSettings, voices map[string]string, breaker *resilience.Breaker) *Client {
	retry := resilience.DefaultRetry
	retry.Retriable = ports.IsRetriable
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		settings:   settings,
		voices:     voices,
		breaker:    breaker,
		retry:      retry,
	}
}

// Synthesize returns MP3 audio for the text, serving repeats from the cache.
func (c *Client) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	voice := c.voiceFor(language)
	cachePath := c.cachePath(text, voice)

	if audio, err := os.ReadFile(cachePath); err == nil {
		return audio, nil
	}

	audio, err := resilience.Retry(ctx, "tts.synthesize", c.retry, func(ctx context.Context) ([]byte, error) {
		var out []byte
		err := c.breaker.Do(func() error {
			var opErr error
			out, opErr = c.synthesizeOnce(ctx, text, voice)
			return opErr
		})
		return out, err
	})
	if err != nil {
		return nil, err
	}

	c.writeCache(cachePath, audio)
	return audio, nil
}

func (c *Client) synthesizeOnce(ctx context.Context, text, voice string) ([]byte, error) {
	body, err := json.Marshal(map[string]any{
		"text":     text,
		"model_id": c.settings.Model,
		"voice_settings": map[string]float64{
			"stability":        0.5,
			"similarity_boost": 0.75,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encoding synthesis request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/text-to-speech/%s", c.settings.BaseURL, voice)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building synthesis request: %w", err)
	}
	req.Header.Set("xi-api-key", c.settings.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, ports.NewDependencyError("tts", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, ports.NewDependencyError("tts", fmt.Errorf("status %d: %s", resp.StatusCode, msg))
	}
	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("synthesis rejected: status %d: %s", resp.StatusCode, msg)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ports.NewDependencyError("tts", err)
	}
	return audio, nil
}

func (c *Client) voiceFor(language string) string {
	if voice, ok := c.voices[language]; ok {
		return voice
	}
	return c.voices["en"]
}

// cachePath derives the cache filename from text, voice and model so a
// voice or model change never serves stale audio.
func (c *Client) cachePath(text, voice string) string {
	sum := sha256.Sum256([]byte(text + "|" + voice + "|" + c.settings.Model))
	return filepath.Join(c.settings.CacheDir, hex.EncodeToString(sum[:])+".mp3")
}

// writeCache stores audio best-effort; synthesis already succeeded so cache
// errors are not surfaced.
func (c *Client) writeCache(path string, audio []byte) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, audio, 0o644); err != nil {
		return
	}
	_ = os.Rename(tmp, path)
}
