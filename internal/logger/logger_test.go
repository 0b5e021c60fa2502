package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureOutput redirects logger output to a buffer for testing.
// Returns the buffer and a cleanup function to restore original output.
func captureOutput() (*bytes.Buffer, func()) {
	buf := new(bytes.Buffer)

	mu.Lock()
	originalOutput := output
	originalColor := useColor
	output = buf
	useColor = false
	mu.Unlock()

	reconfigure()

	cleanup := func() {
		mu.Lock()
		output = originalOutput
		useColor = originalColor
		mu.Unlock()
		reconfigure()
	}

	return buf, cleanup
}

func TestSetLevel(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetLevel("WARN")
	defer SetLevel("INFO")

	Debug("debug message")
	Info("info message")
	Warn("warn message")
	Error("error message")

	out := buf.String()
	assert.NotContains(t, out, "debug message")
	assert.NotContains(t, out, "info message")
	assert.Contains(t, out, "warn message")
	assert.Contains(t, out, "error message")
}

func TestStructuredFields(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	Info("outbox tick", KeyJob, "dispatch_outbox_events", KeyCount, 3)

	out := buf.String()
	assert.Contains(t, out, "outbox tick")
	assert.Contains(t, out, "job=dispatch_outbox_events")
	assert.Contains(t, out, "count=3")
}

func TestJSONFormat(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetFormat("json")
	defer SetFormat("text")

	Info("event dispatched", KeyEventType, "messaging.request_ready_to_send.v1")

	var record map[string]any
	line := strings.TrimSpace(buf.String())
	require.NoError(t, json.Unmarshal([]byte(line), &record))
	assert.Equal(t, "event dispatched", record["msg"])
	assert.Equal(t, "messaging.request_ready_to_send.v1", record[KeyEventType])
}

func TestContextFields(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	lc := NewLogContext("dispatch_outbox_events")
	lc.EventType = "bulk_import.stage.v1"
	lc.OutboxID = 42
	ctx := WithContext(context.Background(), lc)

	InfoCtx(ctx, "handler invoked")

	out := buf.String()
	assert.Contains(t, out, "job=dispatch_outbox_events")
	assert.Contains(t, out, "event_type=bulk_import.stage.v1")
	assert.Contains(t, out, "outbox_id=42")
}

func TestFromContextMissing(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))
	assert.Nil(t, FromContext(nil))
}

func TestConcurrentLogging(t *testing.T) {
	_, cleanup := captureOutput()
	defer cleanup()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			Info("concurrent", KeyCount, n)
		}(i)
	}
	wg.Wait()
}

func TestFormatFields(t *testing.T) {
	fields := FormatFields(KeyJob, "consume_event_bus_messages", KeyCount, 7)
	assert.Equal(t, "consume_event_bus_messages", fields[KeyJob])
	assert.Equal(t, 7, fields[KeyCount])
}
