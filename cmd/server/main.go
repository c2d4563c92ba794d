// Package main is the entry point for the authentication server.
//
// main only reads configuration, builds the logger and the identity
// verifier, and starts the server. Everything else lives under internal/.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/sakif/auth-backend/internal/auth"
	"github.com/sakif/auth-backend/internal/config"
	"github.com/sakif/auth-backend/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := cfg.NewLogger()

	verifier, err := newVerifier(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to configure Firebase", slog.String("error", err.Error()))
		os.Exit(1)
	}

	srv, err := server.New(cfg, logger, verifier)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT or SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// newVerifier picks the Firebase project from FIREBASE_PROJECT_ID, falling
// back to the service-account file. With neither set, federated sign-in is
// disabled but the route stays up.
func newVerifier(ctx context.Context, cfg config.Config, logger *slog.Logger) (auth.IdentityVerifier, error) {
	if !cfg.FederatedAuthConfigured() {
		logger.Warn("FIREBASE_SERVICE_ACCOUNT not set, Google sign-in is disabled")
		return auth.DisabledVerifier(), nil
	}

	projectID := cfg.FirebaseProjectID
	if projectID == "" {
		var err error
		projectID, err = auth.ProjectIDFromServiceAccount(ctx, cfg.FirebaseServiceAccount)
		if err != nil {
			return nil, err
		}
	}

	logger.Info("Google sign-in enabled", slog.String("firebaseProject", projectID))
	return auth.NewRemoteFirebaseVerifier(ctx, projectID), nil
}
