// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration: WAFFLE's CoreConfig
// handles ports, TLS, logging, CORS, and request timeouts.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Max connection pool size
	MongoMinPoolSize uint64 // Min connection pool size

	// Token configuration
	TokenSecret string        // HMAC secret for signing access tokens (must be strong in production)
	TokenTTL    time.Duration // Access token lifetime (e.g., 15m)
	RefreshTTL  time.Duration // Refresh token lifetime (e.g., 720h)

	// File storage configuration
	StorageLocalPath string // Local storage path (e.g., "./uploads/blobs")
	StorageLocalURL  string // URL prefix for serving local files (e.g., "/files")

	// Google OAuth configuration
	GoogleClientID     string
	GoogleClientSecret string

	// Base URL for OAuth redirect URIs
	BaseURL string // e.g., "https://gatherhub.app" or "http://localhost:3000"

	// Background maintenance
	JanitorInterval time.Duration // How often the janitor sweeps (e.g., 15m)
}
