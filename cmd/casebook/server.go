package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/dmarek/casebook/internal/api"
	"github.com/dmarek/casebook/internal/config"
	"github.com/dmarek/casebook/internal/embedding"
	"github.com/dmarek/casebook/internal/knowledge"
	"github.com/dmarek/casebook/internal/ollama"
	"github.com/dmarek/casebook/internal/provider"
	"github.com/dmarek/casebook/internal/retrieval"
	"github.com/dmarek/casebook/internal/router"
	"github.com/dmarek/casebook/internal/storage"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the casebook server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running casebook server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show casebook system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "casebook.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "casebook version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	// Refuse to double-start: probe the health endpoint before claiming the
	// PID file.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("casebook is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("casebook is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	// Model providers. Missing keys are not errors here; the router reports
	// NoProviderConfigured at request time if nothing is usable.
	fast := provider.NewGemini(cfg.Gemini.APIKey, cfg.Gemini.BaseURL, cfg.Gemini.Model)
	deep := provider.NewOpenRouter(cfg.OpenRouter.APIKey, cfg.OpenRouter.BaseURL, cfg.OpenRouter.Model)
	if !fast.IsAvailable() && !deep.IsAvailable() {
		printWarning("no model provider configured; /ask will fail until a key is set")
	}

	// Embeddings: Gemini preferred, local Ollama as fallback.
	ollamaClient := ollama.New(cfg.Ollama.BaseURL)
	gateway := embedding.NewGateway(
		embedding.NewGeminiProvider(cfg.Gemini.APIKey, cfg.Gemini.BaseURL, cfg.Gemini.EmbedModel),
		embedding.NewOllamaProvider(ollamaClient, cfg.Ollama.EmbedModel),
	)
	if name, ok := gateway.Active(ctx); ok {
		slog.Info("embedding provider active", "provider", name)
	} else {
		slog.Warn("no embedding provider available, retrieval degrades to full-text search")
	}

	backend := retrieval.NewSQLiteBackend(store.DB())
	engine := retrieval.NewEngine(gateway, backend, backend)

	corpus := knowledge.NewSQLiteCorpus(store.DB())
	rt := router.New(fast, deep, knowledge.NewBuilder(corpus))

	deps := api.Deps{Store: store, Search: engine, Router: rt}
	handler := api.NewHandler(deps)

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// MCP server on its own port (streamable HTTP transport).
	mcpAddr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.MCPPort)
	mcpSrv := server.NewStreamableHTTPServer(api.NewMCPServer(api.MCPDeps{Deps: deps}))
	go func() {
		slog.Info("MCP server listening", "addr", mcpAddr)
		if err := mcpSrv.Start(mcpAddr); err != nil && err != http.ErrServerClosed {
			slog.Error("MCP server error", "error", err)
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "casebook listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := mcpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("MCP server shutdown", "error", err)
	}
	return srv.Shutdown(shutdownCtx)
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("casebook is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop casebook (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to casebook (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(serverURL + "/health")
	running := false
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == 200 {
			running = true
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	if cfg.Gemini.APIKey != "" {
		printStatus("Fast provider", "gemini (%s)", cfg.Gemini.Model)
	} else {
		printStatus("Fast provider", "not configured")
	}
	if cfg.OpenRouter.APIKey != "" {
		printStatus("Deep provider", "openrouter (%s)", cfg.OpenRouter.Model)
	} else {
		printStatus("Deep provider", "not configured")
	}

	ollamaResp, err := client.Get(cfg.Ollama.BaseURL + "/api/version")
	if err != nil {
		printStatus("Ollama", "not running")
	} else {
		ollamaResp.Body.Close()
		printStatus("Ollama", "running at %s (embed: %s)", cfg.Ollama.BaseURL, cfg.Ollama.EmbedModel)
	}

	if running {
		statsResp, err := client.Get(serverURL + "/stats")
		if err == nil {
			var stats struct {
				Chunks              int `json:"chunks"`
				CaseSummaries       int `json:"case_summaries"`
				Principles          int `json:"principles"`
				LegislationSections int `json:"legislation_sections"`
				Interactions        int `json:"interactions"`
			}
			if decodeErr := decodeJSON(statsResp, &stats); decodeErr == nil {
				printStatus("Chunks", "%d", stats.Chunks)
				printStatus("Corpus", "%d cases, %d principles, %d legislation sections",
					stats.CaseSummaries, stats.Principles, stats.LegislationSections)
				printStatus("Interactions", "%d", stats.Interactions)
			}
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}
