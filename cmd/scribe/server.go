package main

import (
	"context"
	"encoding/json"
	"errors"
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

	"github.com/kalambet/scribe/internal/api"
	"github.com/kalambet/scribe/internal/cache"
	"github.com/kalambet/scribe/internal/classify"
	"github.com/kalambet/scribe/internal/config"
	"github.com/kalambet/scribe/internal/jobs"
	"github.com/kalambet/scribe/internal/prefs"
	"github.com/kalambet/scribe/internal/transcribe"
	"github.com/kalambet/scribe/internal/worker"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the scribe server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running scribe server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show scribe system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "scribe.pid")
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
	fmt.Fprintf(os.Stderr, "scribe version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize structured logging.
	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	// Write PID file. Check if server is already running via health endpoint.
	pidPath := pidFilePath(cfg.Server.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("scribe is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("scribe is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Build the job engine: registry, preference resolver, classifiers,
	// transcription backend, worker, dispatcher.
	registry := jobs.NewRegistry()

	resolver := prefs.NewResolverWithCache(
		prefs.NewSimulatedLookup(cfg.Prefs.LookupDelayMin, cfg.Prefs.LookupDelayMax),
		cache.New[string, classify.Provider](),
		cfg.Prefs.CacheTTL,
	)

	classifiers := map[classify.Provider]classify.Classifier{
		classify.ProviderOpenAI:    classify.NewOpenAIClassifier(cfg.Classify.DelayMin, cfg.Classify.DelayMax),
		classify.ProviderAnthropic: classify.NewAnthropicClassifier(cfg.Classify.DelayMin, cfg.Classify.DelayMax),
	}
	categorizer := classify.NewServiceWithCache(
		resolver,
		classifiers,
		cache.New[string, classify.Result](),
		cfg.Classify.CacheTTL,
	)
	categorizer.UseDefaultProvider(classify.Provider(cfg.Classify.DefaultProvider))

	transcriber := transcribe.NewSimulated(cfg.Transcribe.DelayMin, cfg.Transcribe.DelayMax)

	w := worker.New(registry, transcriber, categorizer, worker.Config{
		Steps:        cfg.Worker.Steps,
		StepDelayMin: cfg.Worker.StepDelayMin,
		StepDelayMax: cfg.Worker.StepDelayMax,
	})
	dispatcher := worker.NewDispatcher(w, int64(cfg.Worker.MaxConcurrent))

	// Build HTTP handler and server.
	handler := api.NewHandler(api.Deps{
		Registry:    registry,
		Dispatcher:  dispatcher,
		PrefCache:   resolver,
		ResultCache: categorizer,
		Version:     version,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Build and start MCP server (stdio transport in a goroutine).
	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Registry:   registry,
		Dispatcher: dispatcher,
		Version:    version,
	})
	stdioSrv := server.NewStdioServer(mcpSrv)
	go func() {
		if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("MCP stdio server error", "error", err)
		}
	}()
	slog.Info("MCP server started (stdio transport)")

	// Start server in a goroutine.
	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "scribe listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for signal or server error.
	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Graceful shutdown with timeout. In-flight workers keep running
	// until the process exits; jobs have no cancellation path.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Server.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("scribe is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop scribe (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to scribe (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		// Still show partial status even if config fails.
		printError("config error: %v", err)
		return nil
	}

	// Check server health.
	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(serverURL + "/health")
	running := false
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == 200 {
			printStatus("Server", "running on port %d", cfg.Server.Port)
			running = true
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	// Show job and cache counts if server is running.
	if running {
		apiClient, err := newAPIClient()
		if err == nil {
			showJobCounts(apiClient)
			showCacheCounts(apiClient)
		}
	}

	printStatus("Data dir", "%s", cfg.Server.DataDir)
	return nil
}

func showJobCounts(client *apiClient) {
	resp, err := client.get(context.Background(), "/jobs")
	if err != nil {
		return
	}
	defer resp.Body.Close()

	var list []struct {
		Status string `json:"status"`
	}
	if json.NewDecoder(resp.Body).Decode(&list) != nil {
		return
	}

	counts := map[string]int{}
	for _, j := range list {
		counts[j.Status]++
	}
	printStatus("Jobs", "%d total (%d pending, %d processing, %d completed, %d failed)",
		len(list), counts["pending"], counts["processing"], counts["completed"], counts["failed"])
}

func showCacheCounts(client *apiClient) {
	resp, err := client.get(context.Background(), "/caches/stats")
	if err != nil {
		return
	}
	defer resp.Body.Close()

	var stats map[string]int
	if json.NewDecoder(resp.Body).Decode(&stats) != nil {
		return
	}
	printStatus("Pref cache", "%d entries", stats["preferences"])
	printStatus("Result cache", "%d entries", stats["categorizations"])
}
