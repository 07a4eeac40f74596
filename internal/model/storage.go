package model

import "context"

// ObjectStore keeps archived onboarding payloads.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Exists(ctx context.Context, key string) (bool, error)
}
