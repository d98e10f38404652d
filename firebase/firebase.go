package firebase

import (
	"context"
	"fmt"
	"os"
	"strings"

	"grabbi-loyalty/utils"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

var App *firebase.App

// credentialOptions reads GOOGLE_APPLICATION_CREDENTIALS, which holds either
// the service account JSON itself or a path to it.
func credentialOptions() []option.ClientOption {
	credJSON := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	log := utils.Logger()

	var opts []option.ClientOption
	switch {
	case credJSON == "":
		log.Warn("GOOGLE_APPLICATION_CREDENTIALS not set, using default credentials")
	case strings.HasPrefix(strings.TrimSpace(credJSON), "{"):
		log.Info("using Firebase credentials from environment variable")
		opts = append(opts, option.WithCredentialsJSON([]byte(credJSON)))
	default:
		log.Info("using Firebase credentials from file", zap.String("path", credJSON))
		opts = append(opts, option.WithCredentialsFile(credJSON))
	}
	return opts
}

func Init(ctx context.Context) error {
	var cfg *firebase.Config
	if projectID := os.Getenv("FIREBASE_PROJECT_ID"); projectID != "" {
		cfg = &firebase.Config{ProjectID: projectID}
	}

	app, err := firebase.NewApp(ctx, cfg, credentialOptions()...)
	if err != nil {
		return fmt.Errorf("firebase init failed: %w", err)
	}

	App = app
	utils.Logger().Info("Firebase initialized")
	return nil
}

// Firestore returns a client for the initialised app.
func Firestore(ctx context.Context) (*firestore.Client, error) {
	if App == nil {
		return nil, fmt.Errorf("firebase app not initialized")
	}
	return App.Firestore(ctx)
}
