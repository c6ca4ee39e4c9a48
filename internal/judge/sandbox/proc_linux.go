//go:build linux

package sandbox

import (
	"os"
	"os/exec"
	"syscall"
)

// sysProcAttr puts the child in its own process group so the whole tree
// can be killed at once, and denies it the network by cloning into a
// fresh network namespace. Creating that namespace needs CAP_SYS_ADMIN;
// when the service is not root, an enclosing single-uid user namespace
// grants it.
func sysProcAttr(netIsolation bool) *syscall.SysProcAttr {
	attr := &syscall.SysProcAttr{Setpgid: true}
	if netIsolation {
		attr.Cloneflags = syscall.CLONE_NEWNET
		if os.Getuid() != 0 {
			attr.Cloneflags |= syscall.CLONE_NEWUSER
			attr.UidMappings = []syscall.SysProcIDMap{
				{ContainerID: os.Getuid(), HostID: os.Getuid(), Size: 1},
			}
			attr.GidMappings = []syscall.SysProcIDMap{
				{ContainerID: os.Getgid(), HostID: os.Getgid(), Size: 1},
			}
		}
	}
	return attr
}

func killProcessGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	// Negative pid addresses the process group.
	syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
}

func maxRSSKB(state *os.ProcessState) int64 {
	if state == nil {
		return 0
	}
	usage, ok := state.SysUsage().(*syscall.Rusage)
	if !ok {
		return 0
	}
	// Maxrss is kilobytes on Linux.
	return usage.Maxrss
}
