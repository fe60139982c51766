package observers

import (
	"context"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"

	agentmodel "github.com/tripsmart/server/internal/agent/model"
	logx "github.com/tripsmart/server/pkg/logger"
)

// newModelHandler logs request size, token usage and estimated cost around model calls.
func newModelHandler() *callbackHelper.ModelCallbackHandler {
	return &callbackHelper.ModelCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *model.CallbackInput) context.Context {
			ev := logx.Debug().Str("provider", info.Type).Str("model", info.Name)
			if input != nil {
				chars := 0
				for _, m := range input.Messages {
					if m != nil {
						chars += len(m.Content)
					}
				}
				ev = ev.Int("messages", len(input.Messages)).Int("prompt_chars", chars)
			}
			ev.Msg("model call started")
			return ctx
		},
		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *model.CallbackOutput) context.Context {
			ev := logx.Debug().Str("provider", info.Type).Str("model", info.Name)
			if output != nil {
				if output.Message != nil {
					ev = ev.Int("response_chars", len(output.Message.Content))
				}
				if u := output.TokenUsage; u != nil {
					_, _, cost := agentmodel.ComputeCost(toSchemaUsage(u), agentmodel.ResolvePricing(info.Name))
					ev = ev.Int("prompt_tokens", u.PromptTokens).
						Int("completion_tokens", u.CompletionTokens).
						Float64("cost_usd", cost)
				}
			}
			ev.Msg("model call finished")
			return ctx
		},
		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			logx.Warn().Err(err).Str("provider", info.Type).Str("model", info.Name).Msg("model call failed")
			return ctx
		},
	}
}

func toSchemaUsage(u *model.TokenUsage) *schema.TokenUsage {
	if u == nil {
		return nil
	}
	return &schema.TokenUsage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
	}
}
