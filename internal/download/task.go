package download

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Status represents the current status of a download task
type Status string

const (
	StatusPending   Status = "pending"
	StatusInFlight  Status = "in_flight"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusRejected  Status = "rejected"
)

// FailReason classifies why a task failed
type FailReason string

const (
	FailTimeout   FailReason = "timeout"
	FailNetwork   FailReason = "network"
	FailServer    FailReason = "server_error"
	FailCancelled FailReason = "cancelled"
)

// RejectReason classifies why a task was rejected before or during transfer
type RejectReason string

const (
	RejectOversize RejectReason = "oversize"
	RejectDuration RejectReason = "duration"
)

// Task represents one deduplicated network fetch for media bytes.
// A task moves from pending to in-flight to exactly one terminal state
// (completed, failed or rejected) and is never re-executed afterwards.
// Multiple content items may hold the same *Task.
type Task struct {
	ID      string
	URL     string
	Headers http.Header

	mu     sync.Mutex
	status Status
	path   string
	size   int64
	fail   FailReason
	reject RejectReason
	err    error
	done   chan struct{}
}

func newTask(url string, headers http.Header) *Task {
	return &Task{
		ID:      uuid.New().String(),
		URL:     url,
		Headers: headers,
		status:  StatusPending,
		done:    make(chan struct{}),
	}
}

// dedupKey builds the identity key of a fetch: the URL plus the
// normalized request headers. Header order does not matter.
func dedupKey(url string, headers http.Header) string {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(url)
	for _, k := range keys {
		b.WriteByte('\n')
		b.WriteString(http.CanonicalHeaderKey(k))
		b.WriteByte(':')
		b.WriteString(strings.Join(headers[k], ","))
	}

	sum := sha1.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Status returns the current task status
func (t *Task) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Terminal reports whether the task reached a final state
func (t *Task) Terminal() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the task reaches a terminal state or the context
// is cancelled. It is safe to call from multiple goroutines.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Result returns the memoized terminal result. It must only be called
// after the task is terminal; Wait first.
func (t *Task) Result() (path string, size int64, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.status {
	case StatusCompleted:
		return t.path, t.size, nil
	case StatusFailed:
		return "", 0, &FailedError{Reason: t.fail, Cause: t.err}
	case StatusRejected:
		return "", 0, &RejectedError{Reason: t.reject}
	default:
		return "", 0, fmt.Errorf("download task %s not terminal (status %s)", t.ID, t.status)
	}
}

// FailedWith reports whether the task failed for the given reason
func (t *Task) FailedWith(reason FailReason) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status == StatusFailed && t.fail == reason
}

// RejectedWith reports whether the task was rejected for the given reason
func (t *Task) RejectedWith(reason RejectReason) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status == StatusRejected && t.reject == reason
}

func (t *Task) markInFlight() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status == StatusPending {
		t.status = StatusInFlight
	}
}

func (t *Task) complete(path string, size int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.terminalLocked() {
		return
	}
	t.status = StatusCompleted
	t.path = path
	t.size = size
	close(t.done)
}

func (t *Task) failWith(reason FailReason, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.terminalLocked() {
		return
	}
	t.status = StatusFailed
	t.fail = reason
	t.err = err
	close(t.done)
}

func (t *Task) rejectWith(reason RejectReason) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.terminalLocked() {
		return
	}
	t.status = StatusRejected
	t.reject = reason
	close(t.done)
}

func (t *Task) terminalLocked() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// FailedError is returned when materializing a task that failed after
// retries were exhausted.
type FailedError struct {
	Reason FailReason
	Cause  error
}

func (e *FailedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("download failed (%s): %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("download failed (%s)", e.Reason)
}

func (e *FailedError) Unwrap() error { return e.Cause }

// RejectedError is returned when materializing a task that exceeded a
// configured ceiling.
type RejectedError struct {
	Reason RejectReason
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("download rejected (%s)", e.Reason)
}
