//go:build linux

package app

import "os/exec"

// platformOpen opens a file with the desktop's default application
func platformOpen(path string) error {
	return exec.Command("xdg-open", path).Start()
}
