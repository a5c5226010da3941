//go:build windows

package caster

import "syscall"

// reuseAddrControl is a no-op on Windows: SO_REUSEADDR there has
// different (and looser) semantics than on Unix and isn't needed for
// the quick-rebind behavior this is meant to provide.
func reuseAddrControl(_, _ string, _ syscall.RawConn) error {
	return nil
}
