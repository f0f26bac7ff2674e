package server

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gorilla/mux"
	"github.com/kartoza/ancu-kesehatan/internal/api"
	"github.com/kartoza/ancu-kesehatan/internal/config"
	"github.com/kartoza/ancu-kesehatan/internal/history"
	"github.com/kartoza/ancu-kesehatan/internal/locale"
	"github.com/kartoza/ancu-kesehatan/internal/pose"
	"github.com/kartoza/ancu-kesehatan/internal/posture"
)

//go:embed static/*
var staticFS embed.FS

//go:embed templates/*.html
var templatesFS embed.FS

// Server holds all the components for the web application
type Server struct {
	cfg        config.Config
	httpServer *http.Server
	router     *mux.Router
	catalog    *locale.Catalog
	analyzer   *posture.Analyzer
	history    *history.Store
	pages      *template.Template
}

// New creates a new Server with all components initialized
func New(cfg config.Config) (*Server, error) {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = config.DefaultMaxUploadBytes
	}

	catalog, err := locale.NewCatalog()
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}

	pages, err := template.New("").Funcs(pageFuncs).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	s := &Server{
		cfg:      cfg,
		router:   mux.NewRouter(),
		catalog:  catalog,
		analyzer: posture.NewAnalyzer(nil),
		pages:    pages,
	}

	// Pose detector is optional; the photo step is skipped without one
	s.loadDetector(cfg.ModelDir)

	// Initialize history store
	historyStore, err := history.NewStore(cfg.DataDir)
	if err != nil {
		log.Printf("Warning: History store not available: %v", err)
	} else {
		s.history = historyStore
	}

	// Set up routes
	s.setupRoutes()

	return s, nil
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Model pack management routes
	s.router.HandleFunc("/api/modelpack/status", s.handleModelPackStatus).Methods("GET")
	s.router.HandleFunc("/api/modelpack/install", s.handleModelPackInstall).Methods("POST")

	// API routes
	apiRouter := s.router.PathPrefix("/api").Subrouter()
	apiHandler := api.NewHandler(s.catalog, s.analyzer, s.history, s.cfg)
	apiHandler.RegisterRoutes(apiRouter)

	// Form page
	s.router.HandleFunc("/", s.handleIndex).Methods("GET")
	s.router.HandleFunc("/analyze", s.handleAnalyze).Methods("POST")
	s.router.HandleFunc("/chart.png", s.handleChart).Methods("GET")

	// Serve saved photos from data/images directory
	imagesDir := filepath.Join(s.cfg.DataDir, "images")
	if s.history != nil {
		imagesDir = s.history.ImagesDir()
	}
	s.router.PathPrefix(history.ImagesURLPrefix).Handler(
		http.StripPrefix(history.ImagesURLPrefix, http.FileServer(http.Dir(imagesDir))))

	// Static files (embedded)
	staticContent, err := fs.Sub(staticFS, "static")
	if err != nil {
		log.Printf("Warning: Could not load embedded static files: %v", err)
		return
	}
	s.router.PathPrefix("/static/").Handler(
		http.StripPrefix("/static/", http.FileServer(http.FS(staticContent))))
}

// loadDetector picks a pose backend from the configured service URL or
// the model pack in modelDir
func (s *Server) loadDetector(modelDir string) {
	det, err := pose.New(pose.Config{
		RemoteURL:     s.cfg.PoseURL,
		RemoteTimeout: s.cfg.PoseTimeout,
		ModelDir:      modelDir,
	})
	if err != nil {
		log.Printf("Warning: Pose estimation not available: %v", err)
		return
	}
	s.replaceDetector(det)
}

// replaceDetector swaps the analyzer backend, closing the old one if it holds resources
func (s *Server) replaceDetector(det posture.Detector) {
	old := s.analyzer.Current()
	s.analyzer.SetDetector(det)
	if c, ok := old.(interface{ Close() error }); ok && old != det {
		c.Close()
	}
}

// Start begins listening for HTTP connections
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("Server listening on http://localhost:%d", s.cfg.Port)
	return s.httpServer.ListenAndServe()
}

// Stop gracefully shuts down the server
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}

	// Close stores
	s.replaceDetector(nil)
	if s.history != nil {
		s.history.Close()
	}

	return err
}
