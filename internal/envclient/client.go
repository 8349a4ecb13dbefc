package envclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

// #region types

// Granularity selects the duration scale applied to directional moves.
type Granularity string

const (
	GranularityCoarse Granularity = "coarse"
	GranularityMedium Granularity = "medium"
	GranularityFine   Granularity = "fine"
)

// durationScales maps a granularity to the durationScale sent with
// directional actions. Non-directional actions never carry a scale.
var durationScales = map[Granularity]float64{
	GranularityCoarse: 1.0,
	GranularityMedium: 0.5,
	GranularityFine:   0.25,
}

// DurationScale returns the scale factor for the granularity, defaulting
// to coarse for unknown values.
func (g Granularity) DurationScale() float64 {
	if s, ok := durationScales[g]; ok {
		return s
	}
	return durationScales[GranularityCoarse]
}

// directionalActions are the moves that accept a durationScale.
var directionalActions = map[string]bool{
	"forward": true,
	"back":    true,
	"left":    true,
	"right":   true,
}

// Observation is the state snapshot returned by the stepping service
// after every reset and step.
type Observation struct {
	AgentPosition  [3]float64 `json:"agentPosition"`
	AgentVelocity  [3]float64 `json:"agentVelocity"`
	BlockPosition  [3]float64 `json:"blockPosition"`
	BlockVelocity  [3]float64 `json:"blockVelocity"`
	HoldingBlock   bool       `json:"holdingBlock"`
	BasketPosition [3]float64 `json:"basketPosition"`
	Gravity        float64    `json:"gravity"`
	IsGrounded     bool       `json:"isGrounded"`
	IsTaskComplete bool       `json:"isTaskComplete"`
	Actions        []string   `json:"actions"`
}

// ResetParams configures a new episode on the stepping service.
type ResetParams struct {
	Task        string  `json:"task"`
	TaskVersion string  `json:"taskVersion,omitempty"`
	Gravity     float64 `json:"gravity"`
	Seed        int64   `json:"seed"`
	MaxSteps    int     `json:"maxSteps,omitempty"`
}

// Info describes the running environment server.
type Info struct {
	TaskName string   `json:"taskName"`
	Tasks    []string `json:"tasks"`
	Actions  []string `json:"actions"`
}

// #endregion types

// #region errors

// ErrServerFailure marks a stepping-service response that was delivered
// but reported failure. Wrapped errors carry the server's message.
var ErrServerFailure = errors.New("env server reported failure")

// #endregion errors

// #region client-struct

// Client talks to the web physics server over HTTP/JSON. One Client is
// bound to one session; the server keys simulation state by sessionId,
// so parallel episodes must each use their own Client.
type Client struct {
	serverURL string
	sessionID string
	http      *http.Client
}

// #endregion client-struct

// #region constructor

// NewClient creates a client for the given server URL and session.
func NewClient(serverURL, sessionID string) *Client {
	return &Client{
		serverURL: strings.TrimRight(serverURL, "/"),
		sessionID: sessionID,
		http:      &http.Client{Timeout: 30 * time.Second},
	}
}

// ServerURLFromEnv returns ENV_SERVER_URL or the local default.
func ServerURLFromEnv() string {
	if v := os.Getenv("ENV_SERVER_URL"); v != "" {
		return v
	}
	return "http://localhost:3000"
}

// SessionID returns the session this client is bound to.
func (c *Client) SessionID() string {
	return c.sessionID
}

// #endregion constructor

// #region reset

// Reset starts a fresh episode and returns the initial observation.
func (c *Client) Reset(ctx context.Context, params ResetParams) (Observation, error) {
	payload := map[string]interface{}{
		"sessionId":   c.sessionID,
		"task":        params.Task,
		"taskVersion": params.TaskVersion,
		"gravity":     params.Gravity,
		"seed":        params.Seed,
	}
	if params.MaxSteps > 0 {
		payload["maxSteps"] = params.MaxSteps
	}
	return c.post(ctx, "/reset", payload)
}

// #endregion reset

// #region step

// Step executes one action. Directional moves carry the durationScale
// for the given granularity; everything else is sent as-is.
func (c *Client) Step(ctx context.Context, action string, granularity Granularity) (Observation, error) {
	payload := map[string]interface{}{
		"sessionId": c.sessionID,
		"action":    action,
	}
	if directionalActions[action] {
		payload["durationScale"] = granularity.DurationScale()
	}
	return c.post(ctx, "/step", payload)
}

// #endregion step

// #region info

// Info fetches server metadata (task name, available actions).
func (c *Client) Info(ctx context.Context) (Info, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.serverURL+"/info", nil)
	if err != nil {
		return Info{}, fmt.Errorf("build info request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Info{}, fmt.Errorf("get info: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Info{}, fmt.Errorf("get info: status %d: %w", resp.StatusCode, ErrServerFailure)
	}
	var info Info
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return Info{}, fmt.Errorf("decode info: %w", err)
	}
	return info, nil
}

// Healthy reports whether the server responds on /health.
func (c *Client) Healthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.serverURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// #endregion info

// #region transport

// envelope is the common response wrapper for /reset and /step.
type envelope struct {
	Success     bool            `json:"success"`
	Error       string          `json:"error"`
	Observation json.RawMessage `json:"observation"`
	Reward      float64         `json:"reward"`
	Done        bool            `json:"done"`
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) (Observation, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Observation{}, fmt.Errorf("marshal %s payload: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serverURL+path, bytes.NewReader(body))
	if err != nil {
		return Observation{}, fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Observation{}, fmt.Errorf("%s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Observation{}, fmt.Errorf("%s: status %d: %w", path, resp.StatusCode, ErrServerFailure)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return Observation{}, fmt.Errorf("decode %s response: %w", path, err)
	}
	if !env.Success {
		return Observation{}, fmt.Errorf("%s: %s: %w", path, env.Error, ErrServerFailure)
	}

	var obs Observation
	if err := json.Unmarshal(env.Observation, &obs); err != nil {
		return Observation{}, fmt.Errorf("decode %s observation: %w", path, err)
	}
	return obs, nil
}

// #endregion transport
