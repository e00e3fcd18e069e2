package logmanager

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docker/cagentcore/pkg/chat"
)

func TestNewAcquiresLockAndIDWorkspace(t *testing.T) {
	dir := t.TempDir()
	m, err := New(dir, "/workspace")
	require.NoError(t, err)
	defer m.Close()

	assert.NotEmpty(t, m.ID())
	assert.Equal(t, "/workspace", m.Workspace())
	assert.Equal(t, dir, m.LogDir())
	assert.FileExists(t, filepath.Join(dir, lockFileName))
}

func TestNewFailsWhenDirectoryAlreadyLocked(t *testing.T) {
	dir := t.TempDir()
	m, err := New(dir, "/workspace")
	require.NoError(t, err)
	defer m.Close()

	_, err = New(dir, "/workspace")
	assert.ErrorIs(t, err, ErrDirectoryLocked)
}

func TestCloseReleasesLockForReacquisition(t *testing.T) {
	dir := t.TempDir()
	m, err := New(dir, "/workspace")
	require.NoError(t, err)
	require.NoError(t, m.Close())

	m2, err := New(dir, "/workspace")
	require.NoError(t, err)
	defer m2.Close()
}

func TestAppendPersistsAndReloads(t *testing.T) {
	dir := t.TempDir()
	m, err := New(dir, "/workspace")
	require.NoError(t, err)

	require.NoError(t, m.Append(chat.NewUserMessage("hello")))
	require.NoError(t, m.Append(chat.NewSystemMessage("world")))
	require.NoError(t, m.Close())

	m2, err := New(dir, "/workspace")
	require.NoError(t, err)
	defer m2.Close()

	msgs := m2.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.Equal(t, "world", msgs[1].Content)
	// reopening mints a fresh conversation identity even though the
	// message history is restored.
	assert.NotEqual(t, m.ID(), m2.ID())
}

func TestAppendRejectsSystemMessageWithUnknownCallID(t *testing.T) {
	dir := t.TempDir()
	m, err := New(dir, "/workspace")
	require.NoError(t, err)
	defer m.Close()

	msg := chat.NewSystemMessage("result")
	msg.CallID = "nonexistent"
	err = m.Append(msg)
	assert.Error(t, err)
}

func TestAppendAcceptsSystemMessageMatchingPriorToolCall(t *testing.T) {
	dir := t.TempDir()
	m, err := New(dir, "/workspace")
	require.NoError(t, err)
	defer m.Close()

	assistant := chat.Message{
		Role:      chat.RoleAssistant,
		ToolCalls: []chat.ToolCall{{ID: "call-1"}},
	}
	require.NoError(t, m.Append(assistant))

	result := chat.NewSystemMessage("done")
	result.CallID = "call-1"
	assert.NoError(t, m.Append(result))
}

func TestMessagesReturnsCopyNotSharedSlice(t *testing.T) {
	dir := t.TempDir()
	m, err := New(dir, "/workspace")
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, m.Append(chat.NewUserMessage("one")))
	msgs := m.Messages()
	msgs[0].Content = "mutated"

	assert.Equal(t, "one", m.Messages()[0].Content)
}

func TestTransformReplacesMessageAndPersists(t *testing.T) {
	dir := t.TempDir()
	m, err := New(dir, "/workspace")
	require.NoError(t, err)

	require.NoError(t, m.Append(chat.NewUserMessage("original")))
	require.NoError(t, m.Transform(0, chat.NewUserMessage("replaced")))

	assert.Equal(t, "replaced", m.Messages()[0].Content)
	require.NoError(t, m.Close())

	m2, err := New(dir, "/workspace")
	require.NoError(t, err)
	defer m2.Close()
	assert.Equal(t, "replaced", m2.Messages()[0].Content)
}

func TestTransformOutOfRangeErrors(t *testing.T) {
	dir := t.TempDir()
	m, err := New(dir, "/workspace")
	require.NoError(t, err)
	defer m.Close()

	err = m.Transform(5, chat.NewUserMessage("x"))
	assert.Error(t, err)
}
