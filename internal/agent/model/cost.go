package model

import (
	"strings"

	"github.com/cloudwego/eino/schema"
)

// Pricing defines USD cost per 1M tokens for input/output.
type Pricing struct {
	InputPerM  float64
	OutputPerM float64
}

// defaultPricing is USD per 1M text tokens. HuggingFace serverless inference is
// billed per compute time, so those models resolve to zero.
var defaultPricing = map[string]Pricing{
	"llama-3.1-8b-instant":    {InputPerM: 0.05, OutputPerM: 0.08},
	"llama3-8b-8192":          {InputPerM: 0.05, OutputPerM: 0.08},
	"llama-3.3-70b-versatile": {InputPerM: 0.59, OutputPerM: 0.79},
	"gpt-4o-mini":             {InputPerM: 0.15, OutputPerM: 0.60},
	"gpt-3.5-turbo":           {InputPerM: 0.50, OutputPerM: 1.50},
	"gemini-2.5-flash":        {InputPerM: 0.30, OutputPerM: 2.50},
	"gemini-2.5-flash-lite":   {InputPerM: 0.10, OutputPerM: 0.40},
}

// ResolvePricing returns pricing for a model, ignoring an "org/" prefix.
// Unknown models cost zero.
func ResolvePricing(model string) Pricing {
	if p, ok := defaultPricing[model]; ok {
		return p
	}
	if i := strings.LastIndex(model, "/"); i >= 0 {
		if p, ok := defaultPricing[model[i+1:]]; ok {
			return p
		}
	}
	return Pricing{}
}

// ComputeCost converts token usage to USD cost using per-1M Pricing.
func ComputeCost(usage *schema.TokenUsage, p Pricing) (inputCost, outputCost, total float64) {
	if usage == nil {
		return 0, 0, 0
	}
	inputCost = p.InputPerM * float64(usage.PromptTokens) / 1_000_000.0
	outputCost = p.OutputPerM * float64(usage.CompletionTokens) / 1_000_000.0
	total = inputCost + outputCost
	return
}
