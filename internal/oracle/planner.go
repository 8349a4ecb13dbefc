package oracle

// #region imports
import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	openai "github.com/sashabaranov/go-openai"

	"github.com/gravitylab/actuation-harness/internal/actuation"
	"github.com/gravitylab/actuation-harness/internal/telemetry"
)

// #endregion

// #region config

// Config points the planner at an OpenAI-compatible chat endpoint.
// Local inference servers (vLLM, llama.cpp, ollama) all speak this
// surface, so BaseURL is the only thing that usually changes.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
}

// DefaultConfig reads the planner endpoint from the environment.
func DefaultConfig() Config {
	cfg := Config{
		BaseURL:     "http://localhost:8000/v1",
		APIKey:      "not-needed",
		Model:       "planner-7b",
		Temperature: 0.1,
		MaxTokens:   256,
	}
	if v := os.Getenv("ORACLE_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("ORACLE_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("ORACLE_MODEL"); v != "" {
		cfg.Model = v
	}
	return cfg
}

// #endregion config

// #region planner

// planReply is the wire shape the model must emit. Validation is
// strict: a reply that parses but fails the schema is discarded.
type planReply struct {
	MoveXMeters   float64 `json:"move_x_meters"`
	MoveZMeters   float64 `json:"move_z_meters"`
	ThrowStrength string  `json:"throw_strength" validate:"required,oneof=weak medium strong"`
}

// Planner asks a chat model for the next move. It satisfies
// actuation.Planner; callers substitute a neutral proposal when
// Propose returns an error.
type Planner struct {
	cfg      Config
	client   *openai.Client
	validate *validator.Validate
}

func NewPlanner(cfg Config) *Planner {
	cc := openai.DefaultConfig(cfg.APIKey)
	cc.BaseURL = cfg.BaseURL
	return &Planner{
		cfg:      cfg,
		client:   openai.NewClientWithConfig(cc),
		validate: validator.New(),
	}
}

// Propose builds the attempt prompt, queries the model, and parses the
// strict JSON reply into a movement proposal.
func (p *Planner) Propose(ctx context.Context, req actuation.PlanRequest) (actuation.Proposal, error) {
	prompt := telemetry.BuildPrompt(req)

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.cfg.Model,
		Temperature: p.cfg.Temperature,
		MaxTokens:   p.cfg.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return actuation.Proposal{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return actuation.Proposal{}, fmt.Errorf("chat completion: empty choices")
	}

	reply, err := parseReply(resp.Choices[0].Message.Content)
	if err != nil {
		return actuation.Proposal{}, err
	}
	if err := p.validate.Struct(reply); err != nil {
		return actuation.Proposal{}, fmt.Errorf("reply failed validation: %w", err)
	}

	log.Printf("[ORACLE] plan moveX=%.2f moveZ=%.2f throw=%s", reply.MoveXMeters, reply.MoveZMeters, reply.ThrowStrength)
	return actuation.Proposal{
		MoveX:    reply.MoveXMeters,
		MoveZ:    reply.MoveZMeters,
		Strength: reply.ThrowStrength,
	}, nil
}

// parseReply strips markdown code fences before decoding. Models
// frequently wrap JSON in ```json blocks despite the contract.
func parseReply(content string) (planReply, error) {
	var reply planReply

	text := strings.TrimSpace(content)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.Index(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	if err := json.Unmarshal([]byte(text), &reply); err != nil {
		return planReply{}, fmt.Errorf("decode plan reply: %w", err)
	}
	return reply, nil
}

// #endregion planner
