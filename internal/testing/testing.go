// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/donovanmchenry/Chatify/internal/models"
)

// MockCompleter is a test double for [services.Completer]
//
// It records every history it receives and answers with Reply or Err.
type MockCompleter struct {
	mu        sync.Mutex
	Reply     string
	Err       error
	Histories [][]models.Message
}

func (m *MockCompleter) Complete(ctx context.Context, history []models.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Histories = append(m.Histories, history)
	if m.Err != nil {
		return "", m.Err
	}
	return m.Reply, nil
}

func (m *MockCompleter) Name() string { return "mock" }

// Calls returns how many times Complete was invoked
func (m *MockCompleter) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Histories)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter passes the first Limit writes through to W and fails every write after that
type LimitedWriter struct {
	Limit  int
	W      io.Writer
	writes int
}

func NewLimitedWriter(limit int, w io.Writer) *LimitedWriter {
	return &LimitedWriter{Limit: limit, W: w}
}

func (l *LimitedWriter) Write(p []byte) (int, error) {
	if l.writes >= l.Limit {
		return 0, errors.New("write limit reached")
	}
	l.writes++
	return l.W.Write(p)
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
