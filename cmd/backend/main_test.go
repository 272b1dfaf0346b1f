package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slotdrop/internal/config"
	"slotdrop/internal/files"
	"slotdrop/internal/logging"
)

func TestOpenStore_Memory(t *testing.T) {
	cfg := &config.Config{Store: config.StoreMemory}

	store, errCh, closeStore := openStore(t.Context(), cfg, logging.Nop())
	defer closeStore()

	assert.IsType(t, &files.MemoryStore{}, store)
	select {
	case <-store.Ready():
	default:
		t.Fatal("memory store should be ready immediately")
	}
	assert.Empty(t, errCh)
}

func TestOpenStore_PostgresReportsConnectFailure(t *testing.T) {
	cfg := &config.Config{Store: config.StorePostgres, ConnectTimeout: time.Second}

	store, errCh, closeStore := openStore(t.Context(), cfg, logging.Nop())
	defer closeStore()

	assert.IsType(t, &files.PostgresStore{}, store)

	select {
	case err := <-errCh:
		require.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("expected connect error for empty DATABASE_URL")
	}

	select {
	case <-store.Ready():
		t.Fatal("store must not become ready")
	default:
	}
}

func TestOpenStore_CancelStopsConnect(t *testing.T) {
	cfg := &config.Config{
		Store:          config.StorePostgres,
		DatabaseURL:    "postgres://u:p@127.0.0.1:1/none?sslmode=disable&connect_timeout=1",
		ConnectTimeout: time.Minute,
	}

	ctx, cancel := context.WithCancel(t.Context())
	_, errCh, closeStore := openStore(ctx, cfg, logging.Nop())
	defer closeStore()

	cancel()
	select {
	case err := <-errCh:
		require.Error(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("connect did not stop after cancel")
	}
}
