//go:build !windows

package symtab

import "syscall"

// sessionAttr places the symbol dumper in its own session so it cannot touch
// the parent's controlling terminal.
func sessionAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}
