package completion

import (
	"fmt"
	"path/filepath"
	"runtime"
)

// Shell represents a supported shell
type Shell string

const (
	Bash       Shell = "bash"
	Zsh        Shell = "zsh"
	Fish       Shell = "fish"
	Powershell Shell = "powershell"
)

// ParseShell resolves an explicit --shell value, or detects the shell from
// the SHELL variable (as returned by getenv) when value is empty.
func ParseShell(value string, getenv func(string) string) (Shell, error) {
	if value == "" {
		return detectShell(getenv)
	}
	switch s := Shell(value); s {
	case Bash, Zsh, Fish, Powershell:
		return s, nil
	default:
		return "", fmt.Errorf("unsupported shell: %s", value)
	}
}

func detectShell(getenv func(string) string) (Shell, error) {
	shellPath := getenv("SHELL")
	if shellPath == "" {
		if runtime.GOOS == "windows" {
			return Powershell, nil
		}
		return "", fmt.Errorf("unable to detect shell: SHELL environment variable not set\nSpecify shell explicitly with --shell flag")
	}

	switch name := filepath.Base(shellPath); name {
	case "bash":
		return Bash, nil
	case "zsh":
		return Zsh, nil
	case "fish":
		return Fish, nil
	default:
		return "", fmt.Errorf("unsupported shell: %s", name)
	}
}

// ScriptPath returns where the completion script for program is installed
func ScriptPath(shell Shell, home, program string) (string, error) {
	switch shell {
	case Bash:
		return filepath.Join(home, ".bash_completion.d", program), nil
	case Zsh:
		return filepath.Join(home, ".zsh", "completion", "_"+program), nil
	case Fish:
		return filepath.Join(home, ".config", "fish", "completions", program+".fish"), nil
	case Powershell:
		if runtime.GOOS == "windows" {
			return filepath.Join(home, "Documents", "WindowsPowerShell", "Scripts", program+".ps1"), nil
		}
		return "", fmt.Errorf("powershell not supported on %s", runtime.GOOS)
	default:
		return "", fmt.Errorf("unsupported shell: %s", shell)
	}
}
