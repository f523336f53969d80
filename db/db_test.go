package db

import (
	"testing"

	"vault/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	mgr, err := NewInMemoryManager()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Close() })
	return mgr
}

func TestGetMissingKey(t *testing.T) {
	mgr := newTestManager(t)

	val, err := mgr.Get("v1_account_absent")
	require.NoError(t, err)
	assert.Nil(t, val)
	assert.False(t, mgr.Exists("v1_account_absent"))
}

func TestEnqueueNotVisibleUntilFlush(t *testing.T) {
	mgr := newTestManager(t)

	mgr.EnqueueSet("k1", "v1")
	assert.Equal(t, 1, mgr.PendingCount())

	val, err := mgr.Get("k1")
	require.NoError(t, err)
	assert.Nil(t, val, "pending writes must not be readable before flush")

	require.NoError(t, mgr.ForceFlush())
	assert.Equal(t, 0, mgr.PendingCount())

	val, err = mgr.Get("k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), val)
}

func TestDeleteAndDiscard(t *testing.T) {
	mgr := newTestManager(t)

	mgr.EnqueueSet("k1", "v1")
	mgr.EnqueueSet("k2", "v2")
	require.NoError(t, mgr.ForceFlush())

	mgr.EnqueueDel("k1")
	require.NoError(t, mgr.ForceFlush())
	assert.False(t, mgr.Exists("k1"))
	assert.True(t, mgr.Exists("k2"))

	// 丢弃后不会落库
	mgr.EnqueueSet("k3", "v3")
	mgr.DiscardPending()
	require.NoError(t, mgr.ForceFlush())
	assert.False(t, mgr.Exists("k3"))

	st := mgr.Stats()
	assert.Equal(t, uint64(3), st.EnqueueSetTotal)
	assert.Equal(t, uint64(1), st.EnqueueDeleteTotal)
	assert.Equal(t, uint64(2), st.FlushBatchTotal)
	assert.Equal(t, uint64(3), st.FlushedTaskTotal)
}

func TestFailedFlushKeepsPendingUntilDiscard(t *testing.T) {
	mgr := newTestManager(t)

	mgr.EnqueueSet("k1", "v1")
	mgr.EnqueueSet("", "bad") // 空 key，badger 拒绝整个事务
	require.Error(t, mgr.ForceFlush())

	assert.False(t, mgr.Exists("k1"), "failed batch must not be partially applied")
	assert.Equal(t, 2, mgr.PendingCount())
	assert.Equal(t, uint64(1), mgr.Stats().FlushErrTotal)

	mgr.DiscardPending()
	assert.Equal(t, 0, mgr.PendingCount())
	require.NoError(t, mgr.ForceFlush())
	assert.False(t, mgr.Exists("k1"))
}

func TestScanPrefix(t *testing.T) {
	mgr := newTestManager(t)

	mgr.EnqueueSet("v1_account_a", "1")
	mgr.EnqueueSet("v1_account_b", "2")
	mgr.EnqueueSet("v1_receipt_x", "3")
	require.NoError(t, mgr.ForceFlush())

	got, err := mgr.Scan("v1_account_")
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, []byte("1"), got["v1_account_a"])
	assert.Equal(t, []byte("2"), got["v1_account_b"])
}

func TestOnDiskManagerPersists(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Database.Path = t.TempDir()

	mgr, err := NewManager(cfg)
	require.NoError(t, err)
	mgr.EnqueueSet("v1_latest_slot", "7")
	require.NoError(t, mgr.ForceFlush())
	require.NoError(t, mgr.Close())

	reopened, err := NewManager(cfg)
	require.NoError(t, err)
	defer reopened.Close()

	val, err := reopened.Get("v1_latest_slot")
	require.NoError(t, err)
	assert.Equal(t, []byte("7"), val)
}
