package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"milo/chain"
	localtools "milo/tools"
	"milo/wallet"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/agents"
	"github.com/tmc/langchaingo/chains"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/memory"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/tools"
)

// ThreadID labels the conversation checkpoint of every agent instance.
const ThreadID = "CDP Agentkit Chatbot Example!"

// Agent runs one prompt and streams its output.
type Agent interface {
	Stream(ctx context.Context, prompt string) *Stream
}

// AgentFactory builds an agent bound to a decrypted wallet.
type AgentFactory func(ctx context.Context, material wallet.Material, logger *logrus.Entry) (Agent, error)

// WalletOpener resolves decrypted wallet material into a live wallet.
type WalletOpener interface {
	Open(ctx context.Context, m wallet.Material) (*wallet.Wallet, error)
}

// AgentDeps are the process-wide pieces every agent shares.
type AgentDeps struct {
	LLM           llms.Model
	Config        *Config
	Wallets       WalletOpener
	Network       chain.Network
	TicketsABI    json.RawMessage
	HTTP          *resty.Client
	AlchemyAPIKey string
}

// NewWalletAgentFactory returns a factory that opens the caller's wallet and
// equips an agent with the wallet tools and the ticket transfer tool.
func NewWalletAgentFactory(deps AgentDeps) (AgentFactory, error) {
	if deps.LLM == nil || deps.Config == nil || deps.Wallets == nil {
		return nil, errors.New("agent factory requires a model, config and wallet opener")
	}

	systemMessage, err := CreateSystemMessage(deps.Network.ID, deps.Network.HasFaucet())
	if err != nil {
		return nil, fmt.Errorf("failed to render system message: %w", err)
	}

	target := localtools.ContractTarget{
		Address: deps.Network.TicketsManagerAddress,
		ABI:     deps.TicketsABI,
	}

	return func(ctx context.Context, material wallet.Material, logger *logrus.Entry) (Agent, error) {
		w, err := deps.Wallets.Open(ctx, material)
		if err != nil {
			return nil, err
		}

		toolsList := []tools.Tool{
			localtools.NewWalletDetailsTool(localtools.WalletDetails{
				ID:        w.ID,
				NetworkID: w.NetworkID,
				Address:   w.DefaultAddress,
			}),
			localtools.NewBalanceTool(w),
			localtools.NewFaucetTool(w, deps.Network.HasFaucet()),
			localtools.NewDateTimeTool(),
		}
		if deps.AlchemyAPIKey != "" && deps.HTTP != nil {
			toolsList = append(toolsList, localtools.NewUSDCBalanceTool(
				deps.HTTP,
				deps.Network.AlchemyURL(deps.AlchemyAPIKey),
				deps.Network.USDCAddress,
			))
		}
		toolsList = append(toolsList, localtools.NewTransferTool(w, target))

		logger.WithFields(logrus.Fields{
			"walletId":   w.ID,
			"toolsCount": len(toolsList),
		}).Debug("Agent initialized for wallet")

		return NewWalletAgent(deps.LLM, toolsList, systemMessage, deps.Config, logger), nil
	}, nil
}

// WalletAgent is an OpenAI functions agent with a conversation buffer. The
// buffer lives as long as the agent, so one agent per request starts fresh.
type WalletAgent struct {
	llm           llms.Model
	tools         []tools.Tool
	systemMessage string
	memory        schema.Memory
	config        *Config
	logger        *logrus.Entry
}

func NewWalletAgent(llm llms.Model, toolsList []tools.Tool, systemMessage string, config *Config, logger *logrus.Entry) *WalletAgent {
	return &WalletAgent{
		llm:           llm,
		tools:         toolsList,
		systemMessage: systemMessage,
		memory: memory.NewConversationBuffer(
			memory.WithInputKey("input"),
			memory.WithOutputKey("output"),
		),
		config: config,
		logger: logger,
	}
}

// Stream starts the agent on prompt. Model responses arrive as agent
// chunks and tool results as tool chunks, in the order the run produces
// them.
func (a *WalletAgent) Stream(ctx context.Context, prompt string) *Stream {
	return NewStream(ctx, func(ctx context.Context, emit func(Chunk)) (err error) {
		defer func() {
			if r := recover(); r != nil {
				a.logger.WithField("panic", r).Error("Panic occurred during agent run")
				err = fmt.Errorf("agent run failed due to internal error: %v", r)
			}
		}()

		countingEmit := func(c Chunk) {
			agentChunks.WithLabelValues(string(c.Source)).Inc()
			emit(c)
		}

		handler := NewAgentCallbackHandler(a.logger, a.config)
		runLLM := NewRunLLM(a.llm, a.config, a.logger, countingEmit)

		runTools := make([]tools.Tool, len(a.tools))
		for i, t := range a.tools {
			runTools[i] = &streamingTool{Tool: t, emit: countingEmit, logger: a.logger}
		}

		agent := agents.NewOpenAIFunctionsAgent(
			runLLM,
			runTools,
			agents.NewOpenAIOption().WithSystemMessage(a.systemMessage),
			agents.WithCallbacksHandler(handler),
		)
		executor := agents.NewExecutor(
			agent,
			agents.WithMaxIterations(a.config.MaxIterations),
			agents.WithMemory(a.memory),
			agents.WithCallbacksHandler(handler),
		)

		_, err = chains.Run(ctx, executor, prompt)
		return err
	})
}

// streamingTool reports each tool result as a tools chunk. Argument
// validation failures become the observation so the model can correct
// itself; every other failure ends the run.
type streamingTool struct {
	tools.Tool
	emit   func(Chunk)
	logger *logrus.Entry
}

func (t *streamingTool) Call(ctx context.Context, input string) (string, error) {
	toolLogger := t.logger.WithField("tool", t.Name())
	startTime := time.Now()

	output, err := t.Tool.Call(ctx, input)
	if err != nil {
		var invalid *localtools.InvalidArgumentsError
		if !errors.As(err, &invalid) {
			toolInvocations.WithLabelValues(t.Name(), "error").Inc()
			toolLogger.WithError(err).WithField("executionTime", time.Since(startTime)).Error("Tool execution failed")
			return "", err
		}
		toolInvocations.WithLabelValues(t.Name(), "invalid").Inc()
		toolLogger.WithField("error", err.Error()).Warn("Tool rejected its arguments")
		output = "Error: " + err.Error()
	} else {
		toolInvocations.WithLabelValues(t.Name(), "success").Inc()
		toolLogger.WithField("executionTime", time.Since(startTime)).Debug("Tool execution completed")
	}

	t.emit(Chunk{Source: SourceTools, Messages: []Message{{Content: output}}})
	return output, nil
}

var _ Agent = (*WalletAgent)(nil)
