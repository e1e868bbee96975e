package bq

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/bigquery"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

// EmulatorHostEnv points the client at a local BigQuery emulator instead of
// Google Cloud, skipping authentication.
const EmulatorHostEnv = "BIGQUERY_EMULATOR_HOST"

func findDefaultCredentials(ctx context.Context) (*google.Credentials, error) {
	creds, err := google.FindDefaultCredentials(ctx,
		bigquery.Scope,
		"https://www.googleapis.com/auth/cloud-platform.read-only",
	)
	if err != nil {
		return nil, fmt.Errorf("ADC not found (run 'gcloud auth application-default login'): %w", err)
	}
	return creds, nil
}

func clientOptions(ctx context.Context) ([]option.ClientOption, error) {
	if host := os.Getenv(EmulatorHostEnv); host != "" {
		return []option.ClientOption{
			option.WithEndpoint("http://" + host),
			option.WithoutAuthentication(),
		}, nil
	}
	creds, err := findDefaultCredentials(ctx)
	if err != nil {
		return nil, err
	}
	return []option.ClientOption{option.WithCredentials(creds)}, nil
}
