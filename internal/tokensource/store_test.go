package tokensource

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token")
	store := &FileStore{Path: path}
	ctx := context.Background()

	if _, err := store.Read(ctx); !errors.Is(err, ErrNoToken) {
		t.Fatalf("read before write: got %v, want ErrNoToken", err)
	}

	if err := store.Write(ctx, "refresh-abc"); err != nil {
		t.Fatalf("write: %v", err)
	}

	token, err := store.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if token != "refresh-abc" {
		t.Errorf("token = %q", token)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("file mode = %o, want 600", perm)
	}
}

func TestFileStoreEmptyWriteClears(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	store := &FileStore{Path: path}
	ctx := context.Background()

	if err := store.Write(ctx, "refresh-abc"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := store.Write(ctx, ""); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := store.Read(ctx); !errors.Is(err, ErrNoToken) {
		t.Errorf("read after clear: got %v, want ErrNoToken", err)
	}

	// Clearing an already-missing file is not an error.
	if err := store.Write(ctx, ""); err != nil {
		t.Errorf("second clear: %v", err)
	}
}

func TestEnvStore(t *testing.T) {
	store := &EnvStore{Variable: "TOKENSOURCE_TEST_TOKEN"}
	ctx := context.Background()

	if _, err := store.Read(ctx); !errors.Is(err, ErrNoToken) {
		t.Fatalf("read unset variable: got %v, want ErrNoToken", err)
	}

	t.Setenv("TOKENSOURCE_TEST_TOKEN", "refresh-env")
	token, err := store.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if token != "refresh-env" {
		t.Errorf("token = %q", token)
	}

	if err := store.Write(ctx, "anything"); err == nil {
		t.Error("env store write succeeded, want error")
	}
}
