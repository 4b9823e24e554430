package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"milo/chain"
	localtools "milo/tools"
	"milo/wallet"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

const serviceAbout = "Momentify Milo Blockchain Agent Service"

// WalletStore returns a user's encrypted wallet blob.
type WalletStore interface {
	EncryptedWallet(ctx context.Context, userID string) (string, error)
}

// WalletDecrypter turns an encrypted wallet blob into wallet material.
type WalletDecrypter interface {
	Open(blob string) (wallet.Material, error)
}

// ServerDeps are the collaborators a Server drives for each chat request.
type ServerDeps struct {
	Wallets WalletStore
	Cipher  WalletDecrypter
	Agents  AgentFactory
}

type Server struct {
	wallets WalletStore
	cipher  WalletDecrypter
	agents  AgentFactory
	runs    *RunRegistry
	config  *Config
	logger  *logrus.Logger
}

// NewServer creates a new server instance with all dependencies initialized.
// The tickets manager ABI is fetched here; a service that cannot transfer
// tickets does not start.
func NewServer(config *Config, logger *logrus.Logger) (*Server, error) {
	logger.Info("Starting server initialization")

	if err := config.Validate(); err != nil {
		return nil, err
	}

	network, err := config.Network()
	if err != nil {
		return nil, err
	}
	logger.WithField("networkId", network.ID).Info("Network selected")

	llm, err := newLLM(config, logger)
	if err != nil {
		return nil, err
	}

	httpClient := chain.NewHTTPClient(config.HTTPTimeout)

	abiURL := network.ABIURL
	if config.ABIURL != "" {
		abiURL = config.ABIURL
	}
	fetchCtx, cancel := context.WithTimeout(context.Background(), config.HTTPTimeout)
	defer cancel()
	ticketsABI, err := chain.FetchABI(fetchCtx, httpClient, abiURL)
	if err != nil {
		return nil, fmt.Errorf("failed to load tickets manager ABI: %w", err)
	}
	if err := chain.RequireMethod(ticketsABI, localtools.TransferMethod); err != nil {
		return nil, fmt.Errorf("tickets manager ABI is unusable: %w", err)
	}

	walletClient, err := wallet.NewClient(wallet.ClientConfig{
		BaseURL:          config.WalletAPIURL,
		APIKeyName:       config.CDPAPIKeyName,
		APIKeyPrivateKey: config.CDPAPIKeyPrivateKey,
		NetworkID:        network.ID,
		Timeout:          config.HTTPTimeout,
		PollInterval:     config.WalletPollInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize wallet client: %w", err)
	}

	cipher, err := wallet.NewCipher(config.WalletKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize wallet cipher: %w", err)
	}

	store, err := wallet.OpenSQLStore(config.DatabaseDriver, config.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	logger.WithField("driver", config.DatabaseDriver).Info("Wallet store connected")

	factory, err := NewWalletAgentFactory(AgentDeps{
		LLM:           llm,
		Config:        config,
		Wallets:       walletClient,
		Network:       network,
		TicketsABI:    ticketsABI,
		HTTP:          httpClient,
		AlchemyAPIKey: config.AlchemyAPIKey,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	logger.Info("Server initialization completed successfully")
	return NewServerWithDeps(config, logger, ServerDeps{
		Wallets: store,
		Cipher:  cipher,
		Agents:  factory,
	}), nil
}

// NewServerWithDeps assembles a server from already built collaborators.
func NewServerWithDeps(config *Config, logger *logrus.Logger, deps ServerDeps) *Server {
	return &Server{
		wallets: deps.Wallets,
		cipher:  deps.Cipher,
		agents:  deps.Agents,
		runs:    NewRunRegistry(),
		config:  config,
		logger:  logger,
	}
}

func newLLM(config *Config, logger *logrus.Logger) (llms.Model, error) {
	var (
		llm llms.Model
		err error
	)

	switch config.LLMProvider {
	case "gemini":
		logger.WithFields(logrus.Fields{"provider": "gemini", "model": config.GeminiModel}).Info("Initializing Gemini LLM")
		llm, err = googleai.New(
			context.Background(),
			googleai.WithAPIKey(config.GeminiAPIKey),
			googleai.WithDefaultModel(config.GeminiModel),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Gemini LLM: %w", err)
		}

	case "ollama":
		logger.WithFields(logrus.Fields{
			"provider": "ollama",
			"endpoint": config.OllamaEndpoint,
			"model":    config.OllamaModel,
		}).Info("Initializing Ollama LLM")
		llm, err = ollama.New(
			ollama.WithServerURL(config.OllamaEndpoint),
			ollama.WithModel(config.OllamaModel),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Ollama LLM: %w", err)
		}

	default:
		logger.WithFields(logrus.Fields{"provider": "openai", "model": config.OpenAIModel}).Info("Initializing OpenAI LLM")
		llm, err = openai.New(
			openai.WithToken(config.OpenAIKey),
			openai.WithModel(config.OpenAIModel),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OpenAI LLM: %w", err)
		}
	}

	logger.Info("LLM initialized successfully")
	return llm, nil
}

func (s *Server) handleChat(c echo.Context) error {
	requestID := c.Request().Header.Get(echo.HeaderXRequestID)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	requestLogger := s.logger.WithFields(logrus.Fields{
		"requestId": requestID,
		"endpoint":  "/chat",
		"method":    "POST",
		"clientIP":  c.RealIP(),
	})

	requestLogger.Info("Received chat request")

	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		requestLogger.WithError(err).Warn("Failed to parse request body")
		chatRequests.WithLabelValues("invalid").Inc()
		return c.JSON(http.StatusBadRequest, ChatResponse{Success: false, Error: "Invalid request body"})
	}

	if missing := req.Missing(); len(missing) > 0 {
		requestLogger.WithField("missing", missing).Warn("Chat request is missing parameters")
		chatRequests.WithLabelValues("invalid").Inc()
		return c.JSON(http.StatusBadRequest, ChatResponse{
			Success: false,
			Error:   "Missing required parameter(s): " + strings.Join(missing, ", "),
		})
	}

	requestLogger = requestLogger.WithField("userId", string(req.UserID))
	requestLogger.WithFields(logrus.Fields{
		"promptLength": len(req.Prompt),
	}).Debug("Chat request validated")

	// Client disconnects and shutdown both cancel the run. Runs are keyed by
	// a server generated ID since clients may reuse request IDs.
	runID := uuid.NewString()
	ctx, cancel := context.WithTimeout(c.Request().Context(), s.config.RequestTimeout)
	defer cancel()
	s.runs.Add(runID, cancel)
	defer s.runs.Remove(runID)
	requestLogger = requestLogger.WithField("runId", runID)

	startTime := time.Now()
	message, err := s.runChat(ctx, req, requestLogger)
	executionTime := time.Since(startTime)

	if err != nil {
		requestLogger.WithError(err).WithField("executionTime", executionTime).Error("Chat request failed")
		chatRequests.WithLabelValues("failed").Inc()
		return c.JSON(http.StatusInternalServerError, ChatResponse{Success: false, Error: err.Error()})
	}

	requestLogger.WithFields(logrus.Fields{
		"executionTime":  executionTime,
		"responseLength": len(message),
	}).Info("Chat request completed successfully")
	chatRequests.WithLabelValues("success").Inc()

	return c.JSON(http.StatusOK, ChatResponse{Success: true, Message: message})
}

// runChat resolves the caller's wallet, runs the agent and aggregates its
// output. Text is only returned when the whole run succeeds.
func (s *Server) runChat(ctx context.Context, req ChatRequest, requestLogger *logrus.Entry) (string, error) {
	blob, err := s.wallets.EncryptedWallet(ctx, string(req.UserID))
	if err != nil {
		return "", err
	}

	material, err := s.cipher.Open(blob)
	if err != nil {
		return "", err
	}
	requestLogger.WithField("walletId", material.WalletID).Debug("Wallet resolved")

	agent, err := s.agents(ctx, material, requestLogger)
	if err != nil {
		return "", err
	}

	stream := agent.Stream(ctx, req.Prompt)
	message := Aggregate(stream.Chunks())
	if err := stream.Err(); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return message, nil
}

func (s *Server) handleHealth(c echo.Context) error {
	s.logger.WithFields(logrus.Fields{
		"endpoint":   "/health",
		"clientIP":   c.RealIP(),
		"activeRuns": len(s.runs.Active()),
	}).Debug("Health check requested")

	return c.JSON(http.StatusOK, HealthResponse{
		Status:  "Healthy",
		About:   serviceAbout,
		Version: Version,
	})
}

// RegisterRoutes registers all HTTP routes for the server
func (s *Server) RegisterRoutes(e *echo.Echo) {
	s.logger.Info("Registering routes")

	e.POST("/chat", s.handleChat)
	e.GET("/health", s.handleHealth)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	s.logger.Info("Routes registered successfully")
}

// HTTPShutdowner is the listener Shutdown drains, usually *echo.Echo.
type HTTPShutdowner interface {
	Shutdown(ctx context.Context) error
}

// Shutdown cancels in-flight agent runs, waits for the listener to drain
// and only then releases the wallet store.
func (s *Server) Shutdown(ctx context.Context, listener HTTPShutdowner) error {
	if cancelled := s.runs.CancelAll(); cancelled > 0 {
		s.logger.WithField("runs", cancelled).Warn("Cancelled in-flight agent runs")
	}

	var shutdownErr error
	if listener != nil {
		shutdownErr = listener.Shutdown(ctx)
		if shutdownErr != nil {
			shutdownErr = fmt.Errorf("failed to drain HTTP server: %w", shutdownErr)
		}
	}

	if closer, ok := s.wallets.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			return errors.Join(shutdownErr, fmt.Errorf("failed to close wallet store: %w", err))
		}
	}
	return shutdownErr
}
