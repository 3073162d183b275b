package api

import (
	"encoding/base64"
	"log/slog"
	"net/http"

	echo "github.com/labstack/echo/v5"
)

// ChatRequest is the body of POST /nova/chat.
type ChatRequest struct {
	Message      string `json:"message"`
	Language     string `json:"language"`
	IncludeVoice bool   `json:"include_voice"`
}

// ChatResponse carries the synthesized reply plus the audit trail.
type ChatResponse struct {
	Response   string `json:"response"`
	Message    string `json:"message"`
	VoiceAudio string `json:"voice_audio,omitempty"`
	Action     string `json:"action,omitempty"`
	Target     string `json:"target,omitempty"`
	Data       any    `json:"data,omitempty"`
	GuideSteps any    `json:"guide_steps,omitempty"`
	Traces     any    `json:"reasoning_traces"`
	TracesRaw  any    `json:"reasoning_traces_raw"`
	AgentsUsed any    `json:"agents_used"`
	Intent     string `json:"intent"`
	DurationMS int64  `json:"duration_ms"`
}

// chatHandler handles POST /nova/chat.
func (s *Server) chatHandler(c *echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Message == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message field is required")
	}
	if req.Language == "" {
		req.Language = "en"
	}

	outcome, err := s.brain.ProcessMessage(c.Request().Context(), currentUserID(c), req.Message, req.Language)
	if err != nil {
		return mapServiceError(c, err)
	}

	resp := &ChatResponse{
		Response:   outcome.Response,
		Message:    outcome.Response,
		Action:     outcome.Action,
		Target:     outcome.Target,
		Data:       outcome.Data,
		GuideSteps: outcome.GuideSteps,
		Traces:     outcome.DisplayTraces,
		TracesRaw:  outcome.Traces,
		AgentsUsed: outcome.AgentsUsed,
		Intent:     outcome.Intent,
		DurationMS: outcome.DurationMS,
	}

	if req.IncludeVoice && s.tts != nil {
		audio, err := s.tts.Synthesize(c.Request().Context(), outcome.Response, req.Language)
		if err != nil {
			// Voice is an enhancement; the text reply still goes out.
			slog.Warn("voice synthesis failed", "error", err, "request_id", currentRequestID(c))
		} else {
			resp.VoiceAudio = base64.StdEncoding.EncodeToString(audio)
		}
	}

	return c.JSON(http.StatusOK, resp)
}
