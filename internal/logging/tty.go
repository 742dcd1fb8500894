package logging

import (
	"os"

	"golang.org/x/term"
)

// IsTTY reports whether v is a terminal. Anything with an Fd method, such as
// *os.File, is asked; everything else is not a terminal.
func IsTTY(v any) bool {
	f, ok := v.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(f.Fd()))
}

// Interactive reports whether the slot pickers may draw: both the input and
// the output of the session must be terminals.
func Interactive(in, out any) bool {
	return IsTTY(in) && IsTTY(out)
}

// SupportsColor reports whether level colors may be written to w.
func SupportsColor(w any) bool {
	return colorAllowed(os.LookupEnv, IsTTY(w))
}

// colorAllowed applies the color environment on top of terminal detection.
// NO_COLOR and TERM=dumb turn color off. CLICOLOR_FORCE turns it on for
// pipes, as in nmsio list | less -R.
func colorAllowed(lookup func(string) (string, bool), isTTY bool) bool {
	if _, ok := lookup("NO_COLOR"); ok {
		return false
	}
	if t, _ := lookup("TERM"); t == "dumb" {
		return false
	}
	if v, ok := lookup("CLICOLOR_FORCE"); ok && v != "" && v != "0" {
		return true
	}
	return isTTY
}
