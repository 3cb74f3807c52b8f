package main

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicModel = "claude-sonnet-4-5-20250929"

// AnthropicAnalyzer categorizes issues through the Anthropic Messages API
// instead of the local CLI.
type AnthropicAnalyzer struct {
	client  anthropic.Client
	model   string
	timeout time.Duration
}

func NewAnthropicAnalyzer(cfg Config) *AnthropicAnalyzer {
	model := cfg.AnalyzerModel
	if model == "" {
		model = defaultAnthropicModel
	}
	return &AnthropicAnalyzer{
		client:  anthropic.NewClient(option.WithAPIKey(cfg.AnthropicAPIKey)),
		model:   model,
		timeout: time.Duration(cfg.AnalyzeTimeout) * time.Second,
	}
}

func (a *AnthropicAnalyzer) Analyze(ctx context.Context, issue Issue) Outcome {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: 1024,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildPrompt(issue))),
		},
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			log.Printf("llm anthropic timeout issue=#%d after=%s", issue.Number, a.timeout)
			return Outcome{Kind: OutcomeTimeout}
		}
		log.Printf("llm anthropic error issue=#%d err=%v", issue.Number, err)
		return Outcome{Kind: OutcomeToolError, Err: err.Error()}
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			log.Printf("llm anthropic response issue=#%d size=%d tokens_in=%d tokens_out=%d",
				issue.Number, len(block.Text), message.Usage.InputTokens, message.Usage.OutputTokens)
			return finishAnalysis(block.Text)
		}
	}
	return Outcome{Kind: OutcomeToolError, Err: "no text content in Anthropic response"}
}
