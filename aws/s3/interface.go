//go:generate mockgen -package mocks -destination mocks/interface.go -source=interface.go
package s3

import (
	"context"
	"errors"
	"time"
)

var ErrKeyNotFound = errors.New("key not found")

// ObjectInfo describes one listed object. Key is relative to the client prefix.
type ObjectInfo struct {
	Key          string
	LastModified time.Time
	ETag         string
}

type BasicClient interface {
	Lister
	Getter
	Putter
	Header
}

type Lister interface {
	List(ctx context.Context, key string) (objects []ObjectInfo, err error)
}

type Getter interface {
	// Get returns ErrKeyNotFound if the given key doesn't exist.
	Get(ctx context.Context, key string) (data []byte, err error)
}

type Putter interface {
	Put(ctx context.Context, key string, data []byte) (err error)
}

type Header interface {
	// Head returns ErrKeyNotFound if the given key doesn't exist.
	Head(ctx context.Context, key string) (ObjectInfo, error)
}
