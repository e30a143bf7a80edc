package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"alfa-chat/internal/domain"
	"alfa-chat/internal/tools"
)

// Engine produce el siguiente turno del asistente. history se muta in place
// para incluir el intercambio de tools intermedio, de modo que la persistencia
// posterior capture la conversación completa y no sólo el texto final.
type Engine interface {
	Reply(ctx context.Context, history *[]domain.Message, user *domain.UserContext, language string) (string, error)
}

// Dispatcher ejecuta una invocación de tool por nombre.
type Dispatcher interface {
	Dispatch(ctx context.Context, name string, args map[string]any, userEmail string) tools.Result
}

// HTTPEngine implementa Engine contra una API de chat completions compatible
// con OpenAI, con una sola ronda de tools para acotar la latencia.
type HTTPEngine struct {
	baseURL    string
	apiKey     string
	model      string
	client     *http.Client
	dispatcher Dispatcher
	logger     *zap.Logger
}

func NewHTTPEngine(baseURL, apiKey, model string, dispatcher Dispatcher, logger *zap.Logger) *HTTPEngine {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "gpt-4o"
	}
	return &HTTPEngine{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		client:     &http.Client{Timeout: 60 * time.Second},
		dispatcher: dispatcher,
		logger:     logger,
	}
}

func systemPrompt(user *domain.UserContext, language string) string {
	langNote := "Respond in English."
	if language == "es" {
		langNote = "Respond in Spanish."
	}
	userInfo := ""
	if user != nil {
		userInfo = fmt.Sprintf("\nUser: %s (%s)", user.Name, user.Email)
	}
	return "You are Angela, a helpful assistant for Alfa Interpreting. " + langNote + userInfo
}

func (e *HTTPEngine) Reply(ctx context.Context, history *[]domain.Message, user *domain.UserContext, language string) (string, error) {
	prompt := systemPrompt(user, language)

	assistant, err := e.complete(ctx, prompt, *history, chatTools)
	if err != nil {
		return "", err
	}

	if len(assistant.ToolCalls) == 0 {
		return assistant.Content, nil
	}

	// Una sola ronda: mensaje del asistente pidiendo tools, resultados, y una
	// completion de seguimiento sin volver a ofrecer tools.
	*history = append(*history, assistant)
	userEmail := ""
	if user != nil {
		userEmail = user.Email
	}
	for _, call := range assistant.ToolCalls {
		args := map[string]any{}
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			e.logger.Warn("tool arguments unparseable", zap.String("tool", call.Function.Name), zap.Error(err))
			args = map[string]any{}
		}
		e.logger.Debug("tool call", zap.String("tool", call.Function.Name))

		result := e.dispatcher.Dispatch(ctx, call.Function.Name, args, userEmail)
		payload, err := json.Marshal(result)
		if err != nil {
			payload = []byte(`{"found":false}`)
		}
		*history = append(*history, domain.Message{
			Role:       domain.RoleTool,
			ToolCallID: call.ID,
			Content:    string(payload),
		})
	}

	final, err := e.complete(ctx, prompt, *history, nil)
	if err != nil {
		return "", err
	}
	return final.Content, nil
}

type chatTool struct {
	Type     string       `json:"type"`
	Function toolFunction `json:"function"`
}

type toolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

var chatTools = []chatTool{
	{
		Type: "function",
		Function: toolFunction{
			Name:        tools.NameApplicationStatus,
			Description: "Look up application status",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"email": map[string]any{"type": "string"},
				},
				"required": []string{},
			},
		},
	},
	{
		Type: "function",
		Function: toolFunction{
			Name:        tools.NameKnowledgeSearch,
			Description: "Search knowledge base",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{"type": "string"},
				},
				"required": []string{"query"},
			},
		},
	},
	{
		Type: "function",
		Function: toolFunction{
			Name:        tools.NameHumanHandoff,
			Description: "Transfer to human",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"reason": map[string]any{"type": "string"},
				},
				"required": []string{"reason"},
			},
		},
	},
}

type chatRequest struct {
	Model       string           `json:"model"`
	Messages    []domain.Message `json:"messages"`
	Tools       []chatTool       `json:"tools,omitempty"`
	ToolChoice  string           `json:"tool_choice,omitempty"`
	Temperature float64          `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message domain.Message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (e *HTTPEngine) complete(ctx context.Context, prompt string, history []domain.Message, withTools []chatTool) (domain.Message, error) {
	messages := make([]domain.Message, 0, len(history)+1)
	messages = append(messages, domain.Message{Role: domain.RoleSystem, Content: prompt})
	messages = append(messages, history...)

	reqBody := chatRequest{
		Model:       e.model,
		Messages:    messages,
		Temperature: 0.7,
	}
	if len(withTools) > 0 {
		reqBody.Tools = withTools
		reqBody.ToolChoice = "auto"
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return domain.Message{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return domain.Message{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+e.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return domain.Message{}, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.Message{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		e.logger.Warn("llm error status", zap.Int("status", resp.StatusCode), zap.ByteString("body", respBody))
		return domain.Message{}, fmt.Errorf("llm http error: status=%d", resp.StatusCode)
	}

	var cr chatResponse
	if err := json.Unmarshal(respBody, &cr); err != nil {
		return domain.Message{}, fmt.Errorf("unmarshal response: %w", err)
	}
	if cr.Error != nil {
		return domain.Message{}, fmt.Errorf("llm api error: %s", cr.Error.Message)
	}
	if len(cr.Choices) == 0 {
		return domain.Message{}, fmt.Errorf("llm empty response")
	}
	return cr.Choices[0].Message, nil
}
