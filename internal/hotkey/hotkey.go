// Package hotkey binds global key combinations through X11 passive
// grabs. Combos are written the way they appear in configuration,
// e.g. "ctrl+shift+f".
package hotkey

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/xgb/xproto"
)

// keysyms for non-letter keys accepted in combos
const (
	keysymSpace  = 0x0020
	keysymPrint  = 0xff61
	keysymReturn = 0xff0d
	keysymF1     = 0xffbe
)

// combo is a parsed key combination: a modifier mask plus the
// unshifted keysym of the trigger key.
type combo struct {
	mods   uint16
	keysym uint32
}

var modifierNames = map[string]uint16{
	"ctrl":    xproto.ModMaskControl,
	"control": xproto.ModMaskControl,
	"shift":   xproto.ModMaskShift,
	"alt":     xproto.ModMask1,
	"super":   xproto.ModMask4,
	"win":     xproto.ModMask4,
	"cmd":     xproto.ModMask4,
}

// parseCombo parses a textual key combination. The last token is the
// trigger key; everything before it must be a modifier.
func parseCombo(s string) (combo, error) {
	tokens := strings.Split(strings.ToLower(strings.TrimSpace(s)), "+")
	if len(tokens) == 0 || tokens[len(tokens)-1] == "" {
		return combo{}, fmt.Errorf("empty key combination %q", s)
	}

	var c combo
	for _, tok := range tokens[:len(tokens)-1] {
		tok = strings.TrimSpace(tok)
		mask, ok := modifierNames[tok]
		if !ok {
			return combo{}, fmt.Errorf("unknown modifier %q in %q", tok, s)
		}
		c.mods |= mask
	}

	key := strings.TrimSpace(tokens[len(tokens)-1])
	sym, err := keysymFor(key)
	if err != nil {
		return combo{}, fmt.Errorf("invalid key combination %q: %w", s, err)
	}
	c.keysym = sym
	return c, nil
}

// keysymFor resolves a key token to its keysym
func keysymFor(key string) (uint32, error) {
	switch {
	case len(key) == 1 && key[0] >= 'a' && key[0] <= 'z':
		return uint32(key[0]), nil
	case len(key) == 1 && key[0] >= '0' && key[0] <= '9':
		return uint32(key[0]), nil
	case key == "space":
		return keysymSpace, nil
	case key == "print", key == "printscreen":
		return keysymPrint, nil
	case key == "enter", key == "return":
		return keysymReturn, nil
	}

	// f1..f12
	if strings.HasPrefix(key, "f") && len(key) <= 3 {
		n := 0
		for _, r := range key[1:] {
			if r < '0' || r > '9' {
				n = 0
				break
			}
			n = n*10 + int(r-'0')
		}
		if n >= 1 && n <= 12 {
			return keysymF1 + uint32(n-1), nil
		}
	}

	return 0, fmt.Errorf("unknown key %q", key)
}

// Validate reports whether a combo string is well-formed, for config
// validation before any grab is attempted.
func Validate(s string) error {
	_, err := parseCombo(s)
	return err
}
