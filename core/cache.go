package core

import (
	"context"
	"time"
)

type (
	// Cache stores JSON-serializable values for a limited time.
	Cache interface {
		// Get loads the value stored under key into dest. It reports false on a cache miss.
		Get(ctx context.Context, key string, dest interface{}) (bool, error)
		Set(ctx context.Context, key string, val interface{}, ttl time.Duration) error
		DeletePrefix(ctx context.Context, prefix string) error
	}

	// EventPublisher broadcasts domain events to other services.
	EventPublisher interface {
		Publish(ctx context.Context, subject string, payload interface{}) error
	}
)
