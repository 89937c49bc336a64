package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/spawn-mcp/researcher/pkg/blocklist"
	"github.com/spawn-mcp/researcher/pkg/capability"
	"github.com/spawn-mcp/researcher/pkg/research"
	"github.com/spawn-mcp/researcher/pkg/schemas"
)

// researchctl runs a single research session from the command line and
// prints the result as JSON. It is intended for local testing without an
// MCP client attached.
func main() {
	var (
		objectives   multiFlag
		query        = flag.String("query", "", "starting search query")
		maxCalls     = flag.Int("max-calls", 5, "maximum number of iterations")
		allowed      = flag.String("allowed-domains", "", "comma-separated list of allowed domains")
		blocked      = flag.String("blocked-domains", "", "comma-separated list of blocked domains")
		blocklistLoc = flag.String("blocklist", "blocked_domains.json", "path to the persisted blocklist file")
		verbose      = flag.Bool("v", false, "enable debug logging")
	)
	flag.Var(&objectives, "objective", "research objective question (repeatable)")
	flag.Parse()

	if len(objectives) == 0 || *query == "" {
		fmt.Fprintln(os.Stderr, "usage: researchctl -objective <question> [-objective ...] -query <starting query>")
		flag.PrintDefaults()
		os.Exit(2)
	}

	logger := buildLogger(*verbose)
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	registry := blocklist.NewRegistry(ctx, blocklist.NewFileStore(*blocklistLoc), logger)

	client := capability.NewWebClient(capability.WebClientConfig{
		LLMAPIKey:  os.Getenv("OPENAI_API_KEY"),
		LLMBaseURL: os.Getenv("LLM_BASE_URL"),
		Model:      os.Getenv("LLM_MODEL"),
	}, logger)

	controller := research.NewController(client, registry, logger)

	req := schemas.SessionRequest{
		Objectives:     objectives,
		StartingQuery:  *query,
		MaxCalls:       *maxCalls,
		AllowedDomains: splitCSV(*allowed),
		BlockedDomains: splitCSV(*blocked),
	}

	result, err := controller.Run(ctx, req)
	if err != nil {
		logger.Fatal("research session failed", zap.Error(err))
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		logger.Fatal("failed to encode result", zap.Error(err))
	}
	fmt.Println(string(out))
}

func buildLogger(verbose bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

type multiFlag []string

func (m *multiFlag) String() string { return strings.Join(*m, ", ") }

func (m *multiFlag) Set(v string) error {
	*m = append(*m, v)
	return nil
}
