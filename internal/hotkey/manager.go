package hotkey

import (
	"fmt"
	"sync"
	"time"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/bep/debounce"
	"github.com/rs/zerolog"

	"github.com/bryanchriswhite/snapmaster/internal/logger"
)

// debounceWindow collapses key auto-repeat into a single trigger
const debounceWindow = 500 * time.Millisecond

// ignoredMods are lock-state modifier bits stripped before matching
const ignoredMods = xproto.ModMaskLock | xproto.ModMask2

// lockVariants are the lock-state masks a grab must cover so hotkeys
// fire regardless of Caps Lock and Num Lock.
var lockVariants = []uint16{0, xproto.ModMaskLock, xproto.ModMask2, xproto.ModMaskLock | xproto.ModMask2}

type binding struct {
	keycode  xproto.Keycode
	mods     uint16
	name     string
	fire     func(func())
	callback func()
}

// Manager owns a dedicated X connection for passive key grabs and
// dispatches bound callbacks from its event loop.
type Manager struct {
	conn *xgb.Conn
	root xproto.Window
	log  *zerolog.Logger

	keysyms    []xproto.Keysym
	minKeycode xproto.Keycode
	perKeycode byte

	mu       sync.Mutex
	bindings []binding
	running  bool
	doneChan chan struct{}
}

// NewManager connects to the X server and loads the keyboard mapping
func NewManager() (*Manager, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	setup := xproto.Setup(conn)
	m := &Manager{
		conn:       conn,
		root:       setup.DefaultScreen(conn).Root,
		log:        logger.WithComponent("hotkey-manager"),
		minKeycode: setup.MinKeycode,
	}

	count := byte(setup.MaxKeycode - setup.MinKeycode + 1)
	mapping, err := xproto.GetKeyboardMapping(conn, setup.MinKeycode, count).Reply()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to load keyboard mapping: %w", err)
	}
	m.keysyms = mapping.Keysyms
	m.perKeycode = mapping.KeysymsPerKeycode

	return m, nil
}

// keycodeFor finds the first keycode producing the given keysym
func (m *Manager) keycodeFor(sym uint32) (xproto.Keycode, bool) {
	for i := 0; i < len(m.keysyms); i += int(m.perKeycode) {
		if uint32(m.keysyms[i]) == sym {
			return m.minKeycode + xproto.Keycode(i/int(m.perKeycode)), true
		}
	}
	return 0, false
}

// Bind registers a callback for a combo string. Grabs are installed
// with and without the lock modifiers so Caps Lock and Num Lock do
// not mask the binding. Must be called before Start.
func (m *Manager) Bind(comboStr string, cb func()) error {
	c, err := parseCombo(comboStr)
	if err != nil {
		return err
	}

	keycode, ok := m.keycodeFor(c.keysym)
	if !ok {
		return fmt.Errorf("no keycode for combination %q", comboStr)
	}

	for _, extra := range lockVariants {
		err := xproto.GrabKeyChecked(
			m.conn, true, m.root,
			c.mods|extra, keycode,
			xproto.GrabModeAsync, xproto.GrabModeAsync,
		).Check()
		if err != nil {
			return fmt.Errorf("failed to grab %q: %w", comboStr, err)
		}
	}

	m.mu.Lock()
	m.bindings = append(m.bindings, binding{
		keycode:  keycode,
		mods:     c.mods,
		name:     comboStr,
		fire:     debounce.New(debounceWindow),
		callback: cb,
	})
	m.mu.Unlock()

	m.log.Info().Str("combo", comboStr).Msg("Hotkey bound")
	return nil
}

// Start runs the event loop in a goroutine
func (m *Manager) Start() {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.doneChan = make(chan struct{})
	done := m.doneChan
	m.mu.Unlock()

	go m.loop(done)
}

func (m *Manager) loop(done chan struct{}) {
	defer close(done)

	for {
		ev, err := m.conn.WaitForEvent()
		if ev == nil && err == nil {
			// connection closed
			return
		}
		if err != nil {
			m.log.Debug().Err(err).Msg("X event error")
			continue
		}

		key, ok := ev.(xproto.KeyPressEvent)
		if !ok {
			continue
		}
		m.dispatch(key)
	}
}

func (m *Manager) dispatch(ev xproto.KeyPressEvent) {
	state := ev.State &^ ignoredMods

	m.mu.Lock()
	var hit *binding
	for i := range m.bindings {
		if m.bindings[i].keycode == ev.Detail && m.bindings[i].mods == state {
			hit = &m.bindings[i]
			break
		}
	}
	m.mu.Unlock()

	if hit == nil {
		return
	}

	m.log.Debug().Str("combo", hit.name).Msg("Hotkey triggered")
	cb := hit.callback
	hit.fire(func() { go cb() })
}

// Close tears down the grabs and stops the event loop, waiting a
// bounded time for it to exit.
func (m *Manager) Close() error {
	m.mu.Lock()
	for _, b := range m.bindings {
		for _, extra := range lockVariants {
			xproto.UngrabKey(m.conn, b.keycode, m.root, b.mods|extra)
		}
	}
	running := m.running
	done := m.doneChan
	m.running = false
	m.mu.Unlock()

	m.conn.Close()

	if running {
		select {
		case <-done:
		case <-time.After(3 * time.Second):
			m.log.Warn().Msg("Hotkey loop did not stop in time")
		}
	}
	return nil
}
