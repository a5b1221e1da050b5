package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambdacontext"

	"github.com/dmmcquay/reversi-mcp/internal/config"
	"github.com/dmmcquay/reversi-mcp/internal/engine"
	"github.com/dmmcquay/reversi-mcp/internal/logging"
)

type handler struct {
	engine engine.EngineInterface
	logger logging.ContextLogger
}

// HandleRequest answers one move request. The Lambda request id becomes the
// request id in logs and in validation errors.
func (h *handler) HandleRequest(ctx context.Context, req engine.MoveRequest) (engine.MoveResponse, error) {
	var awsID string
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		awsID = lc.AwsRequestID
	}
	ctx, _ = logging.EnsureRequestID(ctx, awsID)
	h.logger.WithContext(ctx).Debug("Lambda invocation", "mover", req.Teban)

	resp, err := h.engine.Decide(ctx, &req)
	if err != nil {
		return engine.MoveResponse{}, err
	}
	return *resp, nil
}

func main() {
	cfg, err := config.Load(config.GetConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLoggerFromConfig(&logging.Config{
		Level:   cfg.Logging.Level,
		Format:  logging.FormatJSON,
		Service: cfg.Server.Name + "-lambda",
		Version: cfg.Server.Version,
	})
	logger.Info("Loaded config", "depth", cfg.Engine.SearchDepth)

	h := &handler{
		engine: engine.NewEngine(&cfg.Engine, logger),
		logger: logger,
	}
	lambda.Start(h.HandleRequest)
}
