package testutil

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/flexmod/flexmod/internal/config"
	"github.com/flexmod/flexmod/internal/project"
	"github.com/flexmod/flexmod/internal/server"
	"github.com/flexmod/flexmod/pkg/types"
)

// TestServer wraps a server instance for testing
type TestServer struct {
	Server  *server.Server
	BaseURL string
	Config  *types.AppConfig
	Mods    *project.Service
	TempDir string
	ModsDir string
	port    int
}

// TestServerOption configures TestServer
type TestServerOption func(*testServerConfig)

type testServerConfig struct {
	modsDir string
	envFile string
}

// WithModsDir serves the mods under dir instead of a fresh temp dir
func WithModsDir(dir string) TestServerOption {
	return func(c *testServerConfig) {
		c.modsDir = dir
	}
}

// WithEnvFile sets the .env file to load
func WithEnvFile(path string) TestServerOption {
	return func(c *testServerConfig) {
		c.envFile = path
	}
}

// StartTestServer creates and starts a test server
func StartTestServer(opts ...TestServerOption) (*TestServer, error) {
	cfg := &testServerConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.envFile != "" {
		_ = godotenv.Load(cfg.envFile)
	} else {
		_ = godotenv.Load("../../.env")
		_ = godotenv.Load("../.env")
	}

	tempDir, err := os.MkdirTemp("", "flexmod-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}

	modsDir := cfg.modsDir
	if modsDir == "" {
		modsDir = filepath.Join(tempDir, "mods")
		if err := os.MkdirAll(modsDir, 0755); err != nil {
			os.RemoveAll(tempDir)
			return nil, fmt.Errorf("failed to create mods dir: %w", err)
		}
	}

	// Keep global config and logs out of the user's home.
	os.Setenv("XDG_CONFIG_HOME", filepath.Join(tempDir, "config"))
	os.Setenv("XDG_STATE_HOME", filepath.Join(tempDir, "state"))

	appConfig, err := config.Load(tempDir)
	if err != nil {
		os.RemoveAll(tempDir)
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	appConfig.ModsDir = modsDir

	port, err := findAvailablePort()
	if err != nil {
		os.RemoveAll(tempDir)
		return nil, fmt.Errorf("failed to find available port: %w", err)
	}

	mods := project.NewService(modsDir, appConfig.EnabledMods)

	serverConfig := server.ConfigFrom(appConfig)
	serverConfig.Port = port
	serverConfig.Hostname = "127.0.0.1"

	srv := server.New(serverConfig, appConfig, mods)

	go func() {
		_ = srv.Start()
	}()

	baseURL := fmt.Sprintf("http://127.0.0.1:%d", port)
	if err := waitForServer(baseURL, 10*time.Second); err != nil {
		srv.Shutdown(context.Background())
		os.RemoveAll(tempDir)
		return nil, fmt.Errorf("server failed to start: %w", err)
	}

	return &TestServer{
		Server:  srv,
		BaseURL: baseURL,
		Config:  appConfig,
		Mods:    mods,
		TempDir: tempDir,
		ModsDir: modsDir,
		port:    port,
	}, nil
}

// Stop shuts down the test server and cleans up
func (ts *TestServer) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if ts.Server != nil {
		if err := ts.Server.Shutdown(ctx); err != nil {
			return err
		}
	}

	if ts.TempDir != "" {
		os.RemoveAll(ts.TempDir)
	}

	return nil
}

// Client returns a new test client for this server
func (ts *TestServer) Client() *TestClient {
	return NewTestClient(ts.BaseURL)
}

// Subscribe follows the event stream of mod on this server
func (ts *TestServer) Subscribe(ctx context.Context, mod string) (*EventStream, error) {
	return SubscribeMod(ctx, ts.BaseURL, mod)
}

// findAvailablePort finds an available TCP port
func findAvailablePort() (int, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer listener.Close()
	return listener.Addr().(*net.TCPAddr).Port, nil
}

// waitForServer waits for the server to be ready
func waitForServer(baseURL string, timeout time.Duration) error {
	client := NewTestClient(baseURL)
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		resp, err := client.Get(context.Background(), "/config")
		if err == nil && resp.IsSuccess() {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	return fmt.Errorf("server not ready after %v", timeout)
}
