package export

import (
	"errors"
	"fmt"

	"github.com/atotto/clipboard"

	"ledger/internal/core"
)

var (
	// ErrClipboardUnavailable is returned when the host has no clipboard utility.
	ErrClipboardUnavailable = errors.New("clipboard unavailable")
	// ErrNothingToCopy is returned by Copy for an empty collection.
	ErrNothingToCopy = errors.New("no data found")
)

// Clipboard receives exported text.
type Clipboard interface {
	Write(text string) error
}

// SystemClipboard writes to the desktop clipboard (xclip/xsel/wl-copy, pbcopy, or the Windows API).
type SystemClipboard struct{}

func (SystemClipboard) Write(text string) error {
	if clipboard.Unsupported {
		return ErrClipboardUnavailable
	}
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("write clipboard: %w", err)
	}
	return nil
}

// Copy renders c as TSV and hands it to cb. It returns the number of rows
// written. An empty collection leaves the clipboard untouched.
func Copy(cb Clipboard, c core.Collection, symbol string) (int, error) {
	if len(c) == 0 {
		return 0, ErrNothingToCopy
	}
	if err := cb.Write(TSV(c, symbol)); err != nil {
		return 0, err
	}
	return len(c), nil
}
