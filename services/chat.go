package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/2HgO/aura-go/config"
	"github.com/2HgO/aura-go/errors"
	"github.com/2HgO/aura-go/metrics"
	"github.com/2HgO/aura-go/models"
	"github.com/2HgO/aura-go/types/requests"
	"github.com/2HgO/aura-go/types/responses"
)

const (
	openAIUpstream = "OpenAI"
	chatHoldings   = 5
	systemPrompt   = "You are AURA, a DeFi portfolio assistant. Give concise, actionable advice grounded in the wallet context you are given. Never ask for private keys."
)

type ChatService interface {
	Chat(ctx context.Context, req *requests.ChatRequest) (*responses.ChatReply, error)
}

func NewChatService(cfg *config.Config, portfolio PortfolioService, recorder metrics.Recorder, log *zap.Logger) ChatService {
	c := &chatService{
		service:   newService(recorder, log),
		portfolio: portfolio,
		model:     cfg.OpenAIModel,
	}
	if cfg.OpenAIKey != "" {
		c.client = newUpstreamClient(openAIUpstream, cfg.OpenAIBaseURL, c.log,
			withHeader("Authorization", "Bearer "+cfg.OpenAIKey),
			withTimeout(60*time.Second),
		)
	}
	return c
}

type chatService struct {
	service
	portfolio PortfolioService
	client    *upstreamClient
	model     string
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatCompletionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *chatService) Chat(ctx context.Context, req *requests.ChatRequest) (reply *responses.ChatReply, err error) {
	if c.client == nil {
		return nil, errors.NewUpstreamError(openAIUpstream, errors.New("OPENAI_API_KEY is not set")).
			WithRemediation("set OPENAI_API_KEY to enable chat")
	}
	start := c.now()
	defer func() { metrics.Since(c.metrics, "chat", start, outcome(err)) }()

	summary := c.contextSummary(ctx, req.Address)
	body := chatCompletionRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "system", Content: summary},
			{Role: "user", Content: req.Message},
		},
		MaxTokens:   800,
		Temperature: 0.7,
	}

	res := &chatCompletionResponse{}
	if err := c.client.do(ctx, http.MethodPost, "/chat/completions", nil, body, res); err != nil {
		return nil, errors.NewUpstreamError(openAIUpstream, err)
	}
	if len(res.Choices) == 0 {
		return nil, errors.NewUpstreamError(openAIUpstream, errors.New("completion returned no choices"))
	}

	return &responses.ChatReply{
		Reply:   strings.TrimSpace(res.Choices[0].Message.Content),
		Model:   res.Model,
		Context: summary,
	}, nil
}

// contextSummary describes the wallet's holdings; AURA failures degrade to an address-only summary.
func (c *chatService) contextSummary(ctx context.Context, address string) string {
	portfolio, err := c.portfolio.GetPortfolio(ctx, address)
	if err != nil {
		c.log.Warn("building chat context", zap.String("address", address), zap.Error(err))
		return fmt.Sprintf("Wallet %s. Portfolio data is currently unavailable.", address)
	}
	return PortfolioSummary(portfolio)
}

func PortfolioSummary(p *models.Portfolio) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Wallet %s holds $%s across %d tokens on %d networks.", p.Address, p.TotalValueUSD.StringFixed(2), p.TokenCount, len(p.Networks))
	for i, h := range p.TopHoldings {
		if i == chatHoldings {
			break
		}
		fmt.Fprintf(&b, " %s on %s: $%s (%s%%).", h.Symbol, h.Network, h.ValueUSD.StringFixed(2), h.Percentage.StringFixed(2))
	}
	return b.String()
}
