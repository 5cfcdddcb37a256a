// Package gcp builds client options for the Google Cloud speech APIs.
package gcp

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

// CloudPlatformScope covers both Speech-to-Text and Text-to-Speech.
const CloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// Credentials selects how a Google client authenticates.
type Credentials struct {
	// APIKey wins when set.
	APIKey string

	// CredentialsFile is a service-account JSON file.
	CredentialsFile string

	// Endpoint overrides the service base URL.
	Endpoint string

	// HTTPClient, when set, is used as-is and no auth is attached.
	HTTPClient *http.Client
}

// ClientOptions resolves credentials in order: explicit HTTP client, API key,
// service-account file, application default credentials.
func ClientOptions(ctx context.Context, c Credentials) ([]option.ClientOption, error) {
	var opts []option.ClientOption

	if c.Endpoint != "" {
		endpoint := c.Endpoint
		if !strings.HasSuffix(endpoint, "/") {
			endpoint += "/"
		}
		opts = append(opts, option.WithEndpoint(endpoint))
	}

	switch {
	case c.HTTPClient != nil:
		opts = append(opts, option.WithHTTPClient(c.HTTPClient))
	case c.APIKey != "":
		opts = append(opts, option.WithAPIKey(c.APIKey))
	case c.CredentialsFile != "":
		data, err := os.ReadFile(c.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read credentials file: %w", err)
		}
		creds, err := google.CredentialsFromJSON(ctx, data, CloudPlatformScope)
		if err != nil {
			return nil, fmt.Errorf("parse credentials file: %w", err)
		}
		opts = append(opts, option.WithTokenSource(creds.TokenSource))
	default:
		ts, err := google.DefaultTokenSource(ctx, CloudPlatformScope)
		if err != nil {
			return nil, fmt.Errorf("application default credentials: %w", err)
		}
		opts = append(opts, option.WithTokenSource(ts))
	}

	return opts, nil
}
