// Copyright 2025 The SmogMap Authors
// SPDX-License-Identifier: Apache-2.0

package location

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	apikeys "cloud.google.com/go/apikeys/apiv2"
	"cloud.google.com/go/apikeys/apiv2/apikeyspb"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/iterator"
)

// GeocodingKeyDisplayName is the display name of the Cloud API key that
// grants access to the Geocoding API.
const GeocodingKeyDisplayName = "SmogMap Geocoding Key"

// APIKeyFromADC looks up the geocoding API key in the Google Cloud project
// of the Application Default Credentials. fallbackProject is used when the
// credentials carry no project (user credentials without a quota project).
func APIKeyFromADC(ctx context.Context, fallbackProject string) (string, error) {
	creds, err := google.FindDefaultCredentials(ctx, "https://www.googleapis.com/auth/cloud-platform")
	if err != nil {
		return "", fmt.Errorf("finding default credentials: %w", err)
	}

	projectID := creds.ProjectID
	if projectID == "" {
		if fallbackProject == "" {
			return "", errors.New("no project ID in default credentials and no fallback project configured")
		}

		projectID = fallbackProject
		slog.Warn("no project ID found in credentials, using fallback", "project", projectID)
	}

	client, err := apikeys.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("creating apikeys client: %w", err)
	}
	defer client.Close()

	it := client.ListKeys(ctx, &apikeyspb.ListKeysRequest{
		Parent: fmt.Sprintf("projects/%s/locations/global", projectID),
	})

	for {
		key, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}

		if err != nil {
			return "", fmt.Errorf("listing keys: %w", err)
		}

		if key.DisplayName != GeocodingKeyDisplayName {
			continue
		}

		// ListKeys redacts the key string.
		slog.Debug("found geocoding key resource, retrieving secret", "key", key.Name)

		resp, err := client.GetKeyString(ctx, &apikeyspb.GetKeyStringRequest{Name: key.Name})
		if err != nil {
			return "", fmt.Errorf("getting key string: %w", err)
		}

		if resp.KeyString == "" {
			return "", fmt.Errorf("key %q found but its key string is empty", GeocodingKeyDisplayName)
		}

		return resp.KeyString, nil
	}

	return "", fmt.Errorf("key with display name %q not found in project %s", GeocodingKeyDisplayName, projectID)
}
