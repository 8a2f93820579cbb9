// Package window describes what the tracker samples from the desktop on each tick.
package window

import "time"

// WindowInfo is the focused window at sample time.
type WindowInfo struct {
	AppName       string
	WindowTitle   string
	ProcessName   string
	PID           int // 0 when the window does not advertise one
	DisplayServer string
}

// IdleInfo is the user's input idle state.
type IdleInfo struct {
	IsIdle   bool
	IsLocked bool
	IdleTime time.Duration
}

// Detector samples the desktop. Implementations must be safe to call from one polling goroutine.
type Detector interface {
	GetFocusedWindow() (*WindowInfo, error)
	GetIdleInfo() (*IdleInfo, error)

	// IsAvailable reports whether the detector can reach a display.
	IsAvailable() bool

	GetDisplayServer() string
	Close() error
}

// NewIdleInfo marks the user idle once input has been quiet for longer than threshold.
func NewIdleInfo(idle time.Duration, locked bool, threshold time.Duration) *IdleInfo {
	if idle < 0 {
		idle = 0
	}
	return &IdleInfo{
		IsIdle:   idle > threshold,
		IsLocked: locked,
		IdleTime: idle,
	}
}

// Away reports whether the current sample should be recorded as idle.
func (i *IdleInfo) Away() bool {
	return i != nil && (i.IsIdle || i.IsLocked)
}
