// Package testutil provides testing utilities.
package testutil

import (
	"os"
	"testing"
)

// EnvLiveAPIURL points live tests at a running sale-event server.
const EnvLiveAPIURL = "BOURSE_TEST_API_URL"

// LiveServer skips the test unless BOURSE_TEST_API_URL is set and returns
// the server URL, the token from BOURSE_TEST_API_TOKEN and the edition from
// BOURSE_TEST_EDITION_ID.
//
// Run live tests with: BOURSE_TEST_API_URL=https://... go test ./...
func LiveServer(t *testing.T) (url, token, edition string) {
	t.Helper()
	url = os.Getenv(EnvLiveAPIURL)
	if url == "" {
		t.Skip("Skipping live server test (set " + EnvLiveAPIURL + " to run)")
	}
	edition = os.Getenv("BOURSE_TEST_EDITION_ID")
	if edition == "" {
		t.Skip("Skipping live server test (BOURSE_TEST_EDITION_ID not set)")
	}
	return url, os.Getenv("BOURSE_TEST_API_TOKEN"), edition
}
