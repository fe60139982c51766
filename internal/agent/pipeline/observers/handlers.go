package observers

import (
	"sync"

	einocb "github.com/cloudwego/eino/callbacks"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"
)

var registerOnce sync.Once

// NewAllCallbacks aggregates the prompt and chat model observers into one callbacks.Handler.
func NewAllCallbacks() einocb.Handler {
	return callbackHelper.NewHandlerHelper().
		ChatModel(newModelHandler()).
		Prompt(newPromptHandler()).
		Handler()
}

// Register installs the observers as eino global handlers once per process.
func Register() {
	registerOnce.Do(func() {
		einocb.AppendGlobalHandlers(NewAllCallbacks())
	})
}
