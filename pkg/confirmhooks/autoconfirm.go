// Package confirmhooks implements the mode-specific tool.confirm hook
// families: a terminal-interactive CLI prompt, an always-confirm
// autonomous hook, and a server rendezvous hook that blocks on an SSE
// round trip. Grounded on gptme/hooks/cli_confirm.py, auto_confirm.py,
// and server_confirm.py.
package confirmhooks

import "sync"

// autoConfirmState is process-global by design: it's a user-intent knob, not
// a per-conversation one, so it's a mutex-guarded counter plus an
// "infinite" flag, decremented on each consumed confirmation.
type autoConfirmState struct {
	mu       sync.Mutex
	infinite bool
	count    int
	active   bool
}

var globalAutoConfirm autoConfirmState

// SetAutoConfirm arms the global auto-confirm counter. count == nil
// means infinite auto-confirm until ResetAutoConfirm is called.
func SetAutoConfirm(count *int) {
	globalAutoConfirm.mu.Lock()
	defer globalAutoConfirm.mu.Unlock()
	globalAutoConfirm.active = true
	if count == nil {
		globalAutoConfirm.infinite = true
		globalAutoConfirm.count = 0
		return
	}
	globalAutoConfirm.infinite = false
	globalAutoConfirm.count = *count
}

// ResetAutoConfirm disarms auto-confirm entirely.
func ResetAutoConfirm() {
	globalAutoConfirm.mu.Lock()
	defer globalAutoConfirm.mu.Unlock()
	globalAutoConfirm.active = false
	globalAutoConfirm.infinite = false
	globalAutoConfirm.count = 0
}

// CheckAutoConfirm reports whether the next confirmation should be
// auto-approved, consuming one unit of the counter if finite. The
// returned message, when non-empty, is meant for CLI display: it is
// "auto-confirming" while a finite counter still has units left, and an
// "auto-confirm exhausted" notice when this call used the last one.
func CheckAutoConfirm() (shouldAuto bool, message string) {
	globalAutoConfirm.mu.Lock()
	defer globalAutoConfirm.mu.Unlock()

	if !globalAutoConfirm.active {
		return false, ""
	}
	if globalAutoConfirm.infinite {
		return true, ""
	}
	if globalAutoConfirm.count <= 0 {
		globalAutoConfirm.active = false
		return false, ""
	}
	globalAutoConfirm.count--
	remaining := globalAutoConfirm.count
	if remaining == 0 {
		globalAutoConfirm.active = false
		return true, "auto-confirm exhausted, next call prompts normally"
	}
	return true, "auto-confirming"
}
