package config

import "time"

// Config holds the application configuration
type Config struct {
	Port    int
	DataDir string
	Version string

	// ModelDir holds the local pose model pack, if any
	ModelDir string
	// PoseURL points at an external pose-estimation service, if any
	PoseURL     string
	PoseTimeout time.Duration

	// MaxUploadBytes bounds photo uploads
	MaxUploadBytes int64
	// DefaultLang is used when neither the query nor the browser picks a language
	DefaultLang string

	SentryDSN   string
	Environment string
}

// DefaultMaxUploadBytes is the photo size limit when none is configured
const DefaultMaxUploadBytes = 10 << 20
