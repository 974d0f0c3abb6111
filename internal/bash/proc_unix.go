//go:build !windows

package bash

import "syscall"

func setpgidAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}

// signalProcessGroup sends sig to the process group led by pid. Falls
// back to signaling the bare pid if the group send fails (e.g. the
// process already exited).
func signalProcessGroup(pid int, sig syscall.Signal) error {
	if err := syscall.Kill(-pid, sig); err != nil {
		return syscall.Kill(pid, sig)
	}
	return nil
}
