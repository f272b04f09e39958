package output

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// isTerminal checks if the writer is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// ColorsDisabled reports whether output to w should be plain text: when
// noColor is set, when NO_COLOR is present, or when w is not a terminal.
// FORCE_COLOR overrides the terminal check.
func ColorsDisabled(w io.Writer, noColor bool) bool {
	if noColor {
		return true
	}
	if _, set := os.LookupEnv("NO_COLOR"); set {
		return true
	}
	if os.Getenv("FORCE_COLOR") != "" {
		return false
	}
	if term := os.Getenv("TERM"); term == "dumb" {
		return true
	}
	return !isTerminal(w)
}
