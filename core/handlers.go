package core

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/callbacks"
	"github.com/tmc/langchaingo/schema"
)

// AgentCallbackHandler logs the agent's progress through a run. Hooks the
// executor never fires for this agent type fall through to SimpleHandler.
type AgentCallbackHandler struct {
	callbacks.SimpleHandler
	requestLogger *logrus.Entry
	iteration     int
	config        *Config
}

func NewAgentCallbackHandler(requestLogger *logrus.Entry, config *Config) *AgentCallbackHandler {
	return &AgentCallbackHandler{
		requestLogger: requestLogger,
		config:        config,
	}
}

func (h *AgentCallbackHandler) truncateForLog(text string) string {
	return truncateForLog(text, h.config.LogTruncateLength)
}

func (h *AgentCallbackHandler) HandleChainStart(ctx context.Context, inputs map[string]any) {
	h.requestLogger.WithField("threadId", ThreadID).Info("Agent run started")
}

func (h *AgentCallbackHandler) HandleChainEnd(ctx context.Context, outputs map[string]any) {
	h.requestLogger.WithField("totalIterations", h.iteration).Info("Agent run completed")
}

func (h *AgentCallbackHandler) HandleChainError(ctx context.Context, err error) {
	h.requestLogger.WithFields(logrus.Fields{
		"error":           err.Error(),
		"totalIterations": h.iteration,
	}).Error("Agent run failed")
}

func (h *AgentCallbackHandler) HandleAgentAction(ctx context.Context, action schema.AgentAction) {
	h.iteration++
	h.requestLogger.WithFields(logrus.Fields{
		"iteration": h.iteration,
		"action":    action.Tool,
		"input":     h.truncateForLog(action.ToolInput),
	}).Info("Agent decided on action")
}

func (h *AgentCallbackHandler) HandleAgentFinish(ctx context.Context, finish schema.AgentFinish) {
	h.requestLogger.WithFields(logrus.Fields{
		"iteration": h.iteration,
		"finalResponse": func() string {
			if output, ok := finish.ReturnValues["output"].(string); ok {
				return h.truncateForLog(output)
			}
			return ""
		}(),
	}).Info("Agent finished successfully")
}

func (h *AgentCallbackHandler) HandleStreamingFunc(ctx context.Context, chunk []byte) {
	h.requestLogger.WithField("chunkSize", len(chunk)).Debug("Streaming chunk received")
}

var _ callbacks.Handler = (*AgentCallbackHandler)(nil)
