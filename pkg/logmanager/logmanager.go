// Package logmanager implements the conversation-owning Manager: an
// append-only Message list plus the directory advisory lock that makes
// a Manager the sole writer of its conversation directory.
//
// The on-disk persistence format is this package's own concern, not a
// reproduction of any particular external format; messages are persisted
// as newline-delimited JSON purely so a restarted process can resume a
// conversation.
package logmanager

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/docker/cagentcore/pkg/chat"
)

const lockFileName = ".cagentcore.lock"
const logFileName = "conversation.jsonl"

// ErrDirectoryLocked is returned by New when another process (or
// another Manager in this process) already owns the conversation
// directory.
var ErrDirectoryLocked = errors.New("logmanager: conversation directory is already locked")

// Manager owns one conversation's message list and its backing
// directory lock. It implements hooks.Manager (ID, Workspace).
//
// Hook registries and tool registries are deliberately not fields here:
// those are context-local, owned per execution context, not by the
// Manager.
type Manager struct {
	mu        sync.RWMutex
	id        string
	workspace string
	logDir    string
	messages  []chat.Message

	lockPath string
	logPath  string
}

// New creates a Manager rooted at logDir, acquiring an exclusive
// advisory lock on that directory. workspace is the filesystem path
// tool executions run against (may differ from logDir).
func New(logDir, workspace string) (*Manager, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("logmanager: create log dir: %w", err)
	}

	m := &Manager{
		id:        uuid.New().String(),
		workspace: workspace,
		logDir:    logDir,
		lockPath:  filepath.Join(logDir, lockFileName),
		logPath:   filepath.Join(logDir, logFileName),
	}

	if err := m.acquireLock(); err != nil {
		return nil, err
	}

	if err := m.loadExisting(); err != nil {
		_ = m.releaseLock()
		return nil, err
	}

	return m, nil
}

// acquireLock creates the lock file exclusively; an existing lock file
// means another Manager already owns logDir. There is no cross-process
// liveness check (a crashed process leaves a stale lock, same as the
// source's directory-is-in-use convention) — Close removes it.
func (m *Manager) acquireLock() error {
	f, err := os.OpenFile(m.lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return ErrDirectoryLocked
		}
		return fmt.Errorf("logmanager: acquire lock: %w", err)
	}
	defer f.Close()
	_, _ = fmt.Fprintf(f, "%d\n", os.Getpid())
	return nil
}

func (m *Manager) releaseLock() error {
	if err := os.Remove(m.lockPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("logmanager: release lock: %w", err)
	}
	return nil
}

func (m *Manager) loadExisting() error {
	f, err := os.Open(m.logPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("logmanager: open log: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var msg chat.Message
		if err := json.Unmarshal(line, &msg); err != nil {
			return fmt.Errorf("logmanager: decode log line: %w", err)
		}
		m.messages = append(m.messages, msg)
	}
	return scanner.Err()
}

// ID implements hooks.Manager.
func (m *Manager) ID() string { return m.id }

// Workspace implements hooks.Manager.
func (m *Manager) Workspace() string { return m.workspace }

// LogDir returns the directory this Manager exclusively owns.
func (m *Manager) LogDir() string { return m.logDir }

// Messages returns a snapshot copy of the conversation so far. Callers
// must not rely on mutating the returned slice to affect the log.
func (m *Manager) Messages() []chat.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]chat.Message, len(m.messages))
	copy(out, m.messages)
	return out
}

// Append adds msg to the end of the log and persists it. Messages are
// never mutated in place once appended; use Transform to record a
// message.transform hook's replacement instead of editing a message
// returned from Messages.
func (m *Manager) Append(msg chat.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if msg.Role == chat.RoleSystem && msg.CallID != "" && !m.hasAssistantToolCallLocked(msg.CallID) {
		return fmt.Errorf("logmanager: system message call_id %q matches no prior assistant tool call", msg.CallID)
	}

	if err := m.appendToFileLocked(msg); err != nil {
		return err
	}
	m.messages = append(m.messages, msg)
	return nil
}

func (m *Manager) hasAssistantToolCallLocked(callID string) bool {
	for _, msg := range m.messages {
		if msg.Role != chat.RoleAssistant {
			continue
		}
		for _, call := range msg.ToolCalls {
			if call.ID == callID {
				return true
			}
		}
	}
	return false
}

// Transform replaces the message at index with replacement and
// persists the whole log, implementing the message.transform hook
// contract ("returns a replacement Message (persists)"). It rewrites
// the on-disk log rather than appending, since the original message at
// that position is gone from the canonical record.
func (m *Manager) Transform(index int, replacement chat.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if index < 0 || index >= len(m.messages) {
		return fmt.Errorf("logmanager: transform index %d out of range (len=%d)", index, len(m.messages))
	}
	m.messages[index] = replacement
	return m.rewriteFileLocked()
}

func (m *Manager) appendToFileLocked(msg chat.Message) error {
	f, err := os.OpenFile(m.logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("logmanager: open log for append: %w", err)
	}
	defer f.Close()

	line, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("logmanager: marshal message: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("logmanager: write message: %w", err)
	}
	return nil
}

func (m *Manager) rewriteFileLocked() error {
	tmpPath := m.logPath + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("logmanager: open temp log: %w", err)
	}
	for _, msg := range m.messages {
		line, err := json.Marshal(msg)
		if err != nil {
			f.Close()
			return fmt.Errorf("logmanager: marshal message: %w", err)
		}
		if _, err := f.Write(append(line, '\n')); err != nil {
			f.Close()
			return fmt.Errorf("logmanager: write message: %w", err)
		}
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("logmanager: close temp log: %w", err)
	}
	if err := os.Rename(tmpPath, m.logPath); err != nil {
		return fmt.Errorf("logmanager: replace log: %w", err)
	}
	return nil
}

// Close releases the directory lock. The Manager must not be used
// afterward.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.releaseLock()
}
