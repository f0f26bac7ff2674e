package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kartoza/ancu-kesehatan/internal/config"
	"github.com/kartoza/ancu-kesehatan/internal/monitoring"
	"github.com/kartoza/ancu-kesehatan/internal/server"
	webview "github.com/webview/webview_go"
)

var version = "dev"

func main() {
	// Parse command-line flags
	port := flag.Int("port", 8080, "HTTP server port")
	dataDir := flag.String("data-dir", "./data", "Directory for saved assessments and photos")
	modelDir := flag.String("model-dir", "", "Directory containing the local pose model files")
	poseURL := flag.String("pose-url", "", "URL of an external pose-estimation service")
	poseTimeout := flag.Duration("pose-timeout", 30*time.Second, "Timeout for the pose-estimation service")
	lang := flag.String("lang", "", "Default interface language (id or en)")
	maxUpload := flag.Int64("max-upload", config.DefaultMaxUploadBytes, "Maximum photo upload size in bytes")
	sentryDSN := flag.String("sentry-dsn", os.Getenv("SENTRY_DSN"), "Sentry DSN for error reporting")
	environment := flag.String("env", "development", "Environment name reported to Sentry")
	headless := flag.Bool("headless", false, "Run in headless mode (no GUI window)")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("Ancu Kesehatan v%s\n", version)
		os.Exit(0)
	}

	// Resolve model dir, pose service and language:
	// 1. Explicit flags take priority
	// 2. Otherwise, load from saved settings (installed model pack)
	resolvedModelDir := *modelDir
	resolvedPoseURL := *poseURL
	resolvedLang := *lang

	settings, err := config.LoadSettings()
	if err != nil {
		log.Printf("Warning: could not load settings: %v", err)
	}
	if resolvedModelDir == "" && settings.ModelPackPath != "" {
		if _, err := os.Stat(settings.ModelPackPath); err == nil {
			resolvedModelDir = settings.ModelPackPath
			log.Printf("Using model pack: %s", settings.ModelPackPath)
		} else {
			log.Printf("Warning: saved model pack path no longer exists: %s", settings.ModelPackPath)
		}
	}
	if resolvedPoseURL == "" {
		resolvedPoseURL = settings.PoseURL
	}
	if resolvedLang == "" {
		resolvedLang = settings.Lang
	}

	if err := monitoring.Init(monitoring.Config{
		DSN:         *sentryDSN,
		Environment: *environment,
		Release:     "ancu-kesehatan@" + version,
	}); err != nil {
		log.Printf("Warning: error reporting disabled: %v", err)
	}
	defer monitoring.Flush(2 * time.Second)

	// Find an available port (try up to 10 ports starting from the requested one)
	availablePort, err := findAvailablePort(*port, 10)
	if err != nil {
		log.Fatalf("Failed to find available port: %v", err)
	}
	if availablePort != *port {
		log.Printf("Port %d in use, using port %d instead", *port, availablePort)
	}

	// Build configuration
	cfg := config.Config{
		Port:           availablePort,
		DataDir:        *dataDir,
		Version:        version,
		ModelDir:       resolvedModelDir,
		PoseURL:        resolvedPoseURL,
		PoseTimeout:    *poseTimeout,
		MaxUploadBytes: *maxUpload,
		DefaultLang:    resolvedLang,
		SentryDSN:      *sentryDSN,
		Environment:    *environment,
	}

	log.Printf("Ancu Kesehatan v%s starting on port %d", version, cfg.Port)
	log.Printf("Data directory: %s", cfg.DataDir)

	// Create and start the server
	srv, err := server.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	// Graceful shutdown on SIGINT/SIGTERM
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// Wait for server to be ready
	serverURL := fmt.Sprintf("http://localhost:%d", cfg.Port)
	waitForServer(serverURL, 10*time.Second)

	if *headless {
		// Headless mode: wait for signal or error
		select {
		case err := <-errCh:
			if err != nil {
				log.Printf("Server error: %v", err)
			}
		case sig := <-stop:
			log.Printf("Received %v signal, shutting down...", sig)
			if err := srv.Stop(); err != nil {
				log.Printf("Error during shutdown: %v", err)
			}
		}
		return
	}

	// GUI mode: open embedded WebView window
	log.Printf("Opening application window...")
	w := webview.New(false)
	defer w.Destroy()

	w.SetTitle("Ancu Kesehatan")
	w.SetSize(900, 1000, webview.HintNone)
	w.Navigate(serverURL)

	// When the webview window closes, shut down the server
	go func() {
		select {
		case err := <-errCh:
			if err != nil {
				log.Printf("Server error: %v", err)
			}
		case sig := <-stop:
			log.Printf("Received %v signal, shutting down...", sig)
			w.Terminate()
		}
	}()

	// Run blocks until the window is closed
	w.Run()

	log.Printf("Window closed, shutting down server...")
	if err := srv.Stop(); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
}

// waitForServer polls until the server is accepting connections
func waitForServer(url string, timeout time.Duration) {
	addr := url[len("http://"):]
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 500*time.Millisecond)
		if err == nil {
			conn.Close()
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	log.Printf("Warning: server may not be ready at %s", url)
}

// findAvailablePort finds an available port, starting from the given port.
// If the port is in use, it tries subsequent ports up to maxAttempts times.
func findAvailablePort(startPort int, maxAttempts int) (int, error) {
	for i := 0; i < maxAttempts; i++ {
		port := startPort + i
		listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err == nil {
			listener.Close()
			return port, nil
		}
	}
	return 0, fmt.Errorf("no available port found after %d attempts starting from %d", maxAttempts, startPort)
}
