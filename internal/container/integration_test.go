// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
)

// checkTestcontainersAvailable reports whether a container provider is
// reachable. Provider detection can panic on hosts without a daemon.
func checkTestcontainersAvailable() (available bool) {
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		return false
	}
	defer provider.Close()
	return true
}

func TestEngineLifecycle_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	engine, err := AutoDetectEngine(ctx)
	if err != nil {
		t.Skipf("skipping container integration tests: %v", err)
	}
	if !checkTestcontainersAvailable() {
		t.Skip("skipping container integration tests: testcontainers provider not available")
	}

	name := ContainerName("lifecycle-it")
	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image: "alpine:3.20",
			Name:  name,
			Cmd:   []string{"sleep", "300"},
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("skipping: cannot start container: %v", err)
	}
	t.Cleanup(func() { _ = ctr.Terminate(context.Background()) })

	if err := engine.Kill(ctx, name); err != nil {
		t.Fatalf("Kill() error: %v", err)
	}
	if err := engine.Remove(ctx, name); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}
	// Both are no-ops once the container is gone.
	if err := engine.Kill(ctx, name); err != nil {
		t.Errorf("Kill() on removed container error: %v", err)
	}
	if err := engine.Remove(ctx, name); err != nil {
		t.Errorf("Remove() on removed container error: %v", err)
	}
}
