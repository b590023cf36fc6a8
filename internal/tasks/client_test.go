package tasks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sboapp/admin/internal/entities"
)

func TestNewClient(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	cfg := DefaultConfig()
	cfg.Workers = 1

	client, err := NewClient(dbPath, cfg)
	require.NoError(t, err)
	require.NotNil(t, client)

	// Verify tasks database was created
	tasksDBPath := filepath.Join(tmpDir, "test-tasks.db")
	_, err = os.Stat(tasksDBPath)
	assert.NoError(t, err, "tasks database should be created")

	err = client.Close()
	assert.NoError(t, err)
}

func TestClientStartStop(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	cfg := DefaultConfig()
	cfg.Workers = 1

	client, err := NewClient(dbPath, cfg)
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go client.Start(ctx)
	time.Sleep(50 * time.Millisecond)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()

	success := client.Stop(stopCtx)
	assert.True(t, success, "stop should succeed gracefully")
}

func TestAppendAuditLogTaskConfig(t *testing.T) {
	cfg := AppendAuditLogTask{}.Config()

	assert.Equal(t, "append_audit_log", cfg.Name)
	assert.Equal(t, 20, cfg.MaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.Backoff)
	assert.NotNil(t, cfg.Retention)
}

// flakyWriter fails the first n appends.
type flakyWriter struct {
	mu       sync.Mutex
	failures int
	written  map[string]int
	done     chan string
}

func (w *flakyWriter) Append(ctx context.Context, log entities.AuditLog) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failures > 0 {
		w.failures--
		return errors.New("store unavailable")
	}
	w.written[log.ID]++
	select {
	case w.done <- log.ID:
	default:
	}
	return nil
}

func TestAppendAuditLogProcessor(t *testing.T) {
	w := &flakyWriter{failures: 1, written: map[string]int{}, done: make(chan string, 1)}
	process := AppendAuditLogProcessor(w)
	task := AppendAuditLogTask{Log: entities.AuditLog{ID: "audit_1", Action: entities.AuditActionUpdate}}

	require.Error(t, process(context.Background(), task))
	require.NoError(t, process(context.Background(), task))
	assert.Equal(t, 1, w.written["audit_1"])

	assert.Error(t, process(context.Background(), AppendAuditLogTask{}))
	assert.Error(t, AppendAuditLogProcessor(nil)(context.Background(), task))
}

func TestAuditOutbox_DeliversQueuedRecord(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	cfg := DefaultConfig()
	cfg.Workers = 1

	client, err := NewClient(dbPath, cfg)
	require.NoError(t, err)
	defer client.Close()

	w := &flakyWriter{written: map[string]int{}, done: make(chan string, 1)}
	client.Register(NewAppendAuditLogQueue(w))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Start(ctx)

	outbox := NewAuditOutbox(client)
	require.NoError(t, outbox.Enqueue(ctx, entities.AuditLog{ID: "audit_42", Action: entities.AuditActionDelete}))

	select {
	case id := <-w.done:
		assert.Equal(t, "audit_42", id)
	case <-time.After(5 * time.Second):
		t.Fatal("queued audit record was not delivered")
	}
}
