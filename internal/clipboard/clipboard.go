// Package clipboard wraps platform clipboard transport, one of spec §1's
// named "external collaborators, specified only by interface": the core
// never talks to the OS clipboard directly, it talks to a Writer.
package clipboard

import (
	"fmt"
	"runtime"

	"github.com/atotto/clipboard"

	"github.com/aibundle/aibundle/internal/model"
)

// Writer copies text to a delivery sink. CLI and TUI both program against
// this interface rather than the concrete system clipboard, so tests can
// substitute a fake without touching the real OS clipboard.
type Writer interface {
	Write(text string) error
}

// System is the real platform clipboard, backed by atotto/clipboard (same
// dependency and WriteAll call quantmind-br-shotgun-cli's own clipboard
// package wraps).
type System struct{}

// Write copies text to the system clipboard. A failure is reported as
// ClipboardUnavailable with the platform-specific remediation hint spec §7
// asks for ("clipboard failures recommend the platform-specific helper").
func (System) Write(text string) error {
	if clipboard.Unsupported {
		return &model.AIBundleError{
			Kind:    model.ErrClipboardUnavailable,
			Code:    model.ExitError,
			Message: unsupportedHint(),
		}
	}
	if err := clipboard.WriteAll(text); err != nil {
		return &model.AIBundleError{
			Kind:    model.ErrClipboardUnavailable,
			Code:    model.ExitError,
			Message: unsupportedHint(),
			Err:     err,
		}
	}
	return nil
}

func unsupportedHint() string {
	return fmt.Sprintf("clipboard unavailable on this platform; install %s", helperName())
}

// helperName names the platform-specific helper spec §7 asks for
// ("clipboard failures recommend the platform-specific helper (e.g.
// install xclip)").
func helperName() string {
	switch runtime.GOOS {
	case "linux":
		return "xclip or xsel"
	case "darwin":
		return "pbcopy (should already be present; check your PATH)"
	case "windows":
		return "clip.exe (should already be present; check your PATH)"
	default:
		return "a clipboard utility for your platform"
	}
}
