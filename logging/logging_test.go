package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/coreos/go-systemd/v22/journal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingWriter struct{}

func (fw *failingWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARNING"))
	assert.Equal(t, slog.LevelError, ParseLevel("Error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestTUIMode(t *testing.T) {
	require.NoError(t, Init(Options{Level: "DEBUG", Format: "text", Buffer: true}))

	slog.Info("Initial log")

	var tuiPane bytes.Buffer
	require.NoError(t, SetOutput(&tuiPane))
	assert.Contains(t, tuiPane.String(), "Initial log", "buffered log should be flushed to the TUI")

	slog.Info("Live log")
	assert.Contains(t, tuiPane.String(), "Live log")

	BufferOutput()
	slog.Info("Buffered log")
	assert.NotContains(t, tuiPane.String(), "Buffered log")

	require.NoError(t, Close())
}

func TestFileLogging(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "test.log")

	require.NoError(t, Init(Options{Level: "INFO", Format: "json", File: logFile}))
	slog.Info("transition", "state", "Green")
	slog.Debug("hidden")
	require.NoError(t, Close())

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"msg":"transition"`)
	assert.Contains(t, string(content), `"state":"Green"`)
	assert.NotContains(t, string(content), "hidden")
}

func TestInit_BadLogFile(t *testing.T) {
	err := Init(Options{File: filepath.Join(t.TempDir(), "missing", "x.log")})
	assert.Error(t, err)
}

func TestStderrFallback(t *testing.T) {
	require.NoError(t, Init(Options{Level: "DEBUG", Buffer: true}))

	slog.Info("Shutdown log")

	oldStderr := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w

	var wg sync.WaitGroup
	wg.Add(1)
	var capturedOutput string
	go func() {
		defer wg.Done()
		buf := make([]byte, 1024)
		n, _ := r.Read(buf)
		capturedOutput = string(buf[:n])
	}()

	err := Close()
	w.Close()
	wg.Wait()
	os.Stderr = oldStderr

	require.NoError(t, err)
	assert.Contains(t, capturedOutput, "Shutdown log")
}

func TestWriteErrorIsReturned(t *testing.T) {
	require.NoError(t, Init(Options{}))
	require.NoError(t, SetOutput(&failingWriter{}))

	_, err := writer.Write([]byte("x"))
	assert.Error(t, err)
}

func TestJournalFormatFallsBackToText(t *testing.T) {
	old := journalAvailable
	journalAvailable = func() bool { return false }
	t.Cleanup(func() { journalAvailable = old })

	require.NoError(t, Init(Options{Format: "journal", Buffer: true}))
	var out bytes.Buffer
	require.NoError(t, SetOutput(&out))
	assert.Contains(t, out.String(), "journal not available")
	_, isText := slog.Default().Handler().(*slog.TextHandler)
	assert.True(t, isText)
}

type journalRecord struct {
	message  string
	priority journal.Priority
	fields   map[string]string
}

func TestJournalHandler(t *testing.T) {
	var got []journalRecord
	h := NewJournalHandler(slog.LevelInfo)
	h.send = func(message string, priority journal.Priority, vars map[string]string) error {
		got = append(got, journalRecord{message, priority, vars})
		return nil
	}

	logger := slog.New(h).With("component", "cycle").WithGroup("lamp")
	logger.Debug("not sent")
	logger.Warn("lamp changed", "name", "GREEN", slog.Group("pin", "gpio-no", 17))

	require.Len(t, got, 1)
	assert.Equal(t, "lamp changed", got[0].message)
	assert.Equal(t, journal.PriWarning, got[0].priority)
	assert.Equal(t, syslogIdentifier, got[0].fields["SYSLOG_IDENTIFIER"])
	assert.Equal(t, "cycle", got[0].fields["COMPONENT"])
	assert.Equal(t, "GREEN", got[0].fields["LAMP_NAME"])
	assert.Equal(t, "17", got[0].fields["LAMP_PIN_GPIO_NO"])
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
}

func TestFieldName(t *testing.T) {
	assert.Equal(t, "STATE", fieldName("state"))
	assert.Equal(t, "A_B_C", fieldName("a.b-c"))
	assert.Equal(t, "FIELD", fieldName("__"))
	assert.True(t, strings.HasPrefix(fieldName("_x"), "X"))
}
