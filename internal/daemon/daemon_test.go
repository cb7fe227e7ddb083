package daemon

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sphinx-chat/sphinxd/internal/bus"
	"github.com/sphinx-chat/sphinxd/internal/lock"
	"github.com/sphinx-chat/sphinxd/internal/status"
	"github.com/sphinx-chat/sphinxd/internal/store"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// shortTmpDir returns a temp dir under /tmp to stay inside the macOS
// 104-char Unix socket path limit.
func shortTmpDir(t *testing.T, pattern string) string {
	t.Helper()
	dir, err := os.MkdirTemp("/tmp", pattern)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return dir
}

func healthClient(t *testing.T, socketPath string) healthpb.HealthClient {
	t.Helper()
	conn, err := grpc.NewClient(
		"unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return healthpb.NewHealthClient(conn)
}

func checkStatus(t *testing.T, client healthpb.HealthClient) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		t.Fatalf("health check error = %v", err)
	}
	return resp.Status
}

func waitForStatus(t *testing.T, client healthpb.HealthClient, want healthpb.HealthCheckResponse_ServingStatus) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if checkStatus(t, client) == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("health status never became %v", want)
}

func TestDaemonLifecycle(t *testing.T) {
	tmpDir := shortTmpDir(t, "sphinx-test-*")

	accountDir := filepath.Join(tmpDir, "main")
	socketPath := filepath.Join(accountDir, "d.sock")
	if err := os.MkdirAll(accountDir, 0700); err != nil {
		t.Fatal(err)
	}

	lk, err := lock.Acquire(accountDir)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = lk.Release() }()

	db, err := store.Open(filepath.Join(accountDir, "sphinx.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()

	b := bus.New()
	machine := status.NewMachine(b)

	srv, err := NewServer(Params{AccountName: "main", SocketPath: socketPath}, b, Services{}, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	go func() { _ = srv.Start() }()
	defer srv.Stop(context.Background())

	time.Sleep(50 * time.Millisecond)

	client := healthClient(t, socketPath)

	// Booting daemon reports NOT_SERVING.
	if got := checkStatus(t, client); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("initial status = %v, want NOT_SERVING", got)
	}

	// Walk the returning-user path to READY; the health service follows.
	if err := machine.Transition(status.Connecting); err != nil {
		t.Fatal(err)
	}
	if err := machine.Transition(status.Syncing); err != nil {
		t.Fatal(err)
	}
	if err := machine.Transition(status.Ready); err != nil {
		t.Fatal(err)
	}
	waitForStatus(t, client, healthpb.HealthCheckResponse_SERVING)

	// A degraded relay connection drops the daemon back to NOT_SERVING.
	if err := machine.Transition(status.Degraded); err != nil {
		t.Fatal(err)
	}
	waitForStatus(t, client, healthpb.HealthCheckResponse_NOT_SERVING)
}

func TestServerCleansStaleSocket(t *testing.T) {
	tmpDir := shortTmpDir(t, "sphinx-sock-*")
	socketPath := filepath.Join(tmpDir, "d.sock")

	// Leave a stale socket file behind, as a crashed daemon would.
	if err := os.WriteFile(socketPath, nil, 0600); err != nil {
		t.Fatal(err)
	}

	srv, err := NewServer(Params{AccountName: "main", SocketPath: socketPath}, bus.New(), Services{}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewServer() with stale socket failed: %v", err)
	}

	info, err := os.Stat(socketPath)
	if err != nil {
		t.Fatalf("socket not created: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("socket permissions = %o, want 0600", perm)
	}

	srv.Stop(context.Background())
	if _, err := os.Stat(socketPath); !os.IsNotExist(err) {
		t.Error("socket file not removed on stop")
	}
}
