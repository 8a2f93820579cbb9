// Package x11 reads the focused window and input idle time straight from the X server.
package x11

import (
	"encoding/binary"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/screensaver"
	"github.com/jezek/xgb/xproto"

	"github.com/actionsum/focuslens/pkg/window"
)

const (
	displayServer = "x11"

	activeWindowRetries = 5
	retryDelay          = 20 * time.Millisecond
	propertyLength      = 256
)

var atomNames = []string{
	"_NET_ACTIVE_WINDOW",
	"_NET_WM_NAME",
	"_NET_WM_PID",
	"WM_NAME",
	"WM_CLASS",
	"UTF8_STRING",
}

// Detector implements window.Detector over a single X connection.
type Detector struct {
	mu            sync.Mutex
	conn          *xgb.Conn
	root          xproto.Window
	atoms         map[string]xproto.Atom
	hasScreensvr  bool
	idleThreshold time.Duration
	connErr       error
}

var _ window.Detector = (*Detector)(nil)

// NewDetector connects to $DISPLAY. A failed connection leaves the detector unavailable.
func NewDetector(idleThreshold time.Duration) *Detector {
	d := &Detector{
		atoms:         make(map[string]xproto.Atom, len(atomNames)),
		idleThreshold: idleThreshold,
	}
	d.connErr = d.connect()
	return d
}

func (d *Detector) connect() error {
	conn, err := xgb.NewConn()
	if err != nil {
		return fmt.Errorf("failed to connect to X server: %w", err)
	}

	for _, name := range atomNames {
		reply, err := xproto.InternAtom(conn, false, uint16(len(name)), name).Reply()
		if err != nil {
			conn.Close()
			return fmt.Errorf("failed to intern atom %s: %w", name, err)
		}
		d.atoms[name] = reply.Atom
	}

	d.conn = conn
	d.root = xproto.Setup(conn).DefaultScreen(conn).Root
	d.hasScreensvr = screensaver.Init(conn) == nil
	return nil
}

func (d *Detector) IsAvailable() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conn != nil
}

// Err returns the connection error, if any.
func (d *Detector) Err() error {
	return d.connErr
}

func (d *Detector) GetDisplayServer() string {
	return displayServer
}

func (d *Detector) GetFocusedWindow() (*window.WindowInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn == nil {
		return nil, fmt.Errorf("x11 detector not connected: %v", d.connErr)
	}

	win, err := d.activeWindow()
	if err != nil {
		return nil, err
	}

	instance, class := parseWMClass(d.property(win, d.atoms["WM_CLASS"], xproto.AtomString, propertyLength))
	pid := decodeCardinal(d.property(win, d.atoms["_NET_WM_PID"], xproto.AtomCardinal, 1))
	process := window.ProcessName(pid)

	return &window.WindowInfo{
		AppName:       appName(class, instance, process),
		WindowTitle:   d.windowName(win),
		ProcessName:   process,
		PID:           pid,
		DisplayServer: displayServer,
	}, nil
}

// GetIdleInfo queries the MIT-SCREEN-SAVER extension. An active screensaver counts as locked.
func (d *Detector) GetIdleInfo() (*window.IdleInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn == nil {
		return nil, fmt.Errorf("x11 detector not connected: %v", d.connErr)
	}
	if !d.hasScreensvr {
		return window.NewIdleInfo(0, false, d.idleThreshold), nil
	}

	reply, err := screensaver.QueryInfo(d.conn, xproto.Drawable(d.root)).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to query screensaver info: %w", err)
	}

	idle := time.Duration(reply.MsSinceUserInput) * time.Millisecond
	return window.NewIdleInfo(idle, reply.State == screensaver.StateOn, d.idleThreshold), nil
}

func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn != nil {
		d.conn.Close()
		d.conn = nil
	}
	return nil
}

func (d *Detector) property(win xproto.Window, atom, typ xproto.Atom, length uint32) []byte {
	reply, err := xproto.GetProperty(d.conn, false, win, atom, typ, 0, length).Reply()
	if err != nil {
		return nil
	}
	return reply.Value
}

// activeWindow prefers _NET_ACTIVE_WINDOW and falls back to the input focus's top-level parent.
// Window managers briefly report a nameless window during focus changes, hence the retries.
func (d *Detector) activeWindow() (xproto.Window, error) {
	for i := 0; i < activeWindowRetries; i++ {
		win := xproto.Window(decodeCardinal(d.property(d.root, d.atoms["_NET_ACTIVE_WINDOW"], xproto.AtomWindow, 1)))
		if win != 0 && d.hasName(win) {
			return win, nil
		}

		if focus, err := xproto.GetInputFocus(d.conn).Reply(); err == nil && focus.Focus != 0 && focus.Focus != d.root {
			top := d.topLevel(focus.Focus)
			if top != 0 && d.hasName(top) {
				return top, nil
			}
		}

		time.Sleep(retryDelay)
	}
	return 0, fmt.Errorf("no active window found")
}

func (d *Detector) topLevel(win xproto.Window) xproto.Window {
	for {
		reply, err := xproto.QueryTree(d.conn, win).Reply()
		if err != nil || reply.Parent == d.root || reply.Parent == 0 {
			return win
		}
		win = reply.Parent
	}
}

func (d *Detector) hasName(win xproto.Window) bool {
	if len(d.property(win, d.atoms["_NET_WM_NAME"], d.atoms["UTF8_STRING"], 1)) > 0 {
		return true
	}
	return len(d.property(win, d.atoms["WM_NAME"], xproto.AtomString, 1)) > 0
}

func (d *Detector) windowName(win xproto.Window) string {
	if data := d.property(win, d.atoms["_NET_WM_NAME"], d.atoms["UTF8_STRING"], propertyLength); len(data) > 0 {
		return strings.TrimRight(string(data), "\x00")
	}
	return strings.TrimRight(string(d.property(win, d.atoms["WM_NAME"], xproto.AtomString, propertyLength)), "\x00")
}

// parseWMClass splits the NUL separated WM_CLASS value into instance and class.
func parseWMClass(data []byte) (instance, class string) {
	parts := strings.Split(strings.TrimRight(string(data), "\x00"), "\x00")
	if len(parts) >= 1 {
		instance = parts[0]
	}
	if len(parts) >= 2 {
		class = parts[1]
	}
	return instance, class
}

func decodeCardinal(data []byte) int {
	if len(data) < 4 {
		return 0
	}
	return int(binary.LittleEndian.Uint32(data))
}

// appName picks the most stable identifier. WM_CLASS survives sandboxing (Flatpak) where the PID does not.
func appName(class, instance, process string) string {
	switch {
	case class != "":
		return class
	case instance != "":
		return instance
	case process != "":
		return process
	default:
		return "Unknown"
	}
}
