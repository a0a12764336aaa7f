//go:build !unix

package squeeze

import "os/exec"

// killProcessGroup leaves the default behaviour, killing the direct child only.
// WaitDelay still bounds how long Compress waits on inherited pipes.
func killProcessGroup(cmd *exec.Cmd) {}
