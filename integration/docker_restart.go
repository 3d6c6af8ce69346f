//go:build integration

package integration

import (
	"context"
	"os/exec"
	"testing"
)

// restartService bounces one compose service so the test can check that
// state survives in postgres rather than in process memory.
func restartService(t *testing.T, ctx context.Context, name string) {
	t.Helper()

	out, err := exec.CommandContext(ctx, "docker", "compose", "restart", name).CombinedOutput()
	if err != nil {
		t.Fatalf("docker compose restart %s failed: %v\n%s", name, err, out)
	}
}
