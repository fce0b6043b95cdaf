//go:build integration

// Package testutil manages the MongoDB testcontainer shared by the
// integration suites. One container serves a whole package run; each
// test isolates itself in its own database via SanitizeDBName.
package testutil

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
)

const mongoImage = "mongo:7.0"

// MongoDBContainer wraps a running MongoDB testcontainer.
type MongoDBContainer struct {
	Container testcontainers.Container
	URI       string
}

// SetupMongoDB starts a dedicated MongoDB container. Prefer the shared
// container via SetupTestMainWithMongoDB; a dedicated one is only worth
// its startup cost when a test mutates server-level state.
func SetupMongoDB(ctx context.Context) (*MongoDBContainer, error) {
	container, err := mongodb.Run(ctx, mongoImage)
	if err != nil {
		return nil, fmt.Errorf("failed to start MongoDB container: %w", err)
	}

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	return &MongoDBContainer{Container: container, URI: uri}, nil
}

// Cleanup terminates the container.
func (m *MongoDBContainer) Cleanup(ctx context.Context) error {
	if m.Container == nil {
		return nil
	}
	if err := m.Container.Terminate(ctx); err != nil {
		return fmt.Errorf("failed to terminate container: %w", err)
	}
	return nil
}

var shared struct {
	mu   sync.RWMutex
	once sync.Once
	c    *MongoDBContainer
	err  error
}

// GetSharedMongoDB returns the package-wide container, starting it on
// first use. Pair with CleanupSharedMongoDB in TestMain.
func GetSharedMongoDB(ctx context.Context) (*MongoDBContainer, error) {
	shared.once.Do(func() {
		shared.mu.Lock()
		defer shared.mu.Unlock()
		shared.c, shared.err = SetupMongoDB(ctx)
	})

	shared.mu.RLock()
	defer shared.mu.RUnlock()
	if shared.err != nil {
		return nil, shared.err
	}
	return shared.c, nil
}

// CleanupSharedMongoDB terminates the shared container. Call after
// m.Run().
func CleanupSharedMongoDB(ctx context.Context) error {
	shared.mu.Lock()
	defer shared.mu.Unlock()
	if shared.c == nil {
		return nil
	}
	return shared.c.Cleanup(ctx)
}

// SetupTestMainWithMongoDB runs a package's tests against one shared
// container:
//
//	func TestMain(m *testing.M) {
//		os.Exit(testutil.SetupTestMainWithMongoDB(context.Background(), m))
//	}
func SetupTestMainWithMongoDB(ctx context.Context, m *testing.M) int {
	if _, err := GetSharedMongoDB(ctx); err != nil {
		panic(err)
	}

	code := m.Run()

	if err := CleanupSharedMongoDB(ctx); err != nil {
		// Docker reaps the container eventually; the run itself is fine.
		fmt.Fprintf(os.Stderr, "Warning: failed to cleanup shared MongoDB container: %v\n", err)
	}
	return code
}

// GetSharedContainerURI returns the shared container's connection URI.
// Panics when called before GetSharedMongoDB.
func GetSharedContainerURI() string {
	shared.mu.RLock()
	defer shared.mu.RUnlock()
	if shared.c == nil {
		panic("shared MongoDB container not initialized - call GetSharedMongoDB first")
	}
	return shared.c.URI
}

// SanitizeDBName turns a test name into a valid, unique MongoDB
// database name: path separators become underscores, the result is
// capped at 50 characters, and a nanosecond suffix keeps parallel
// tests apart.
func SanitizeDBName(testName string) string {
	sanitized := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' {
			return '_'
		}
		return r
	}, testName)

	if len(sanitized) > 50 {
		sanitized = sanitized[:50]
	}
	return fmt.Sprintf("%s_%d", sanitized, time.Now().UnixNano()%1000000)
}
