// Package storage is the blob upload boundary. The worker only sees the
// Uploader port; real blob services are external collaborators.
package storage

import "context"

type Uploader interface {
	// Upload stores content under name and returns a URL for the stored blob.
	Upload(ctx context.Context, name string, content []byte) (string, error)
}
