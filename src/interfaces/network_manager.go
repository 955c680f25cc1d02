package interfaces

import "context"

// -----------------------------------------------------------------------------
// IFetcher defines the contract for reading JSON from the backend API.
// -----------------------------------------------------------------------------

type IFetcher interface {

	// -----------------------------------------------------------------------------

	// Get performs a GET request on path (relative to the API base URL) with
	// query parameters. Returns the response body or an error.
	Get(ctx context.Context, path string, params map[string]string) ([]byte, error)
}
