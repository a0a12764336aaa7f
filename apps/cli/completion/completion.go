package completion

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// NewInstallCmd creates the install-autocomplete command for rootCmd's program
func NewInstallCmd(rootCmd *cobra.Command) *cobra.Command {
	var shellFlag string

	cmd := &cobra.Command{
		Use:   "install-autocomplete",
		Short: "Install shell completion for " + rootCmd.Name(),
		Long: `Install shell completion for the ` + rootCmd.Name() + ` CLI.

Detects your shell from $SHELL unless --shell is given and writes the
completion script for commands, flags, preset names and file paths.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("failed to get home directory: %w", err)
			}
			shell, err := ParseShell(shellFlag, os.Getenv)
			if err != nil {
				return err
			}
			return install(rootCmd, shell, home, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&shellFlag, "shell", "s", "", "Shell to install completion for (bash, zsh, fish, powershell). Auto-detected if not specified.")
	return cmd
}

// NewUninstallCmd creates the uninstall-autocomplete command for rootCmd's program
func NewUninstallCmd(rootCmd *cobra.Command) *cobra.Command {
	var shellFlag string

	cmd := &cobra.Command{
		Use:   "uninstall-autocomplete",
		Short: "Uninstall shell completion for " + rootCmd.Name(),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("failed to get home directory: %w", err)
			}
			shell, err := ParseShell(shellFlag, os.Getenv)
			if err != nil {
				return err
			}
			return uninstall(rootCmd.Name(), shell, home, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&shellFlag, "shell", "s", "", "Shell to uninstall completion from (bash, zsh, fish, powershell). Auto-detected if not specified.")
	return cmd
}

func install(rootCmd *cobra.Command, shell Shell, home string, out io.Writer) error {
	scriptPath, err := ScriptPath(shell, home, rootCmd.Name())
	if err != nil {
		return err
	}

	dir := filepath.Dir(scriptPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create completion directory %s: %w", dir, err)
	}
	if err := writeScript(rootCmd, shell, scriptPath); err != nil {
		return err
	}

	if shell == Bash {
		if err := setSourceLine(filepath.Join(home, ".bash_completion"), scriptPath, true); err != nil {
			fmt.Fprintf(out, "Warning: could not enable auto-load: %v\n", err)
		}
	}

	fmt.Fprintf(out, "Shell completion installed for %s at %s\n", shell, scriptPath)
	switch shell {
	case Bash:
		fmt.Fprintln(out, "Open a new terminal to use it.")
	case Zsh:
		fmt.Fprintf(out, "Ensure ~/.zshrc contains:\n  fpath=(%s $fpath)\n  autoload -Uz compinit && compinit\n", dir)
	case Fish:
		fmt.Fprintln(out, "Run 'exec fish' to activate it in the current session.")
	case Powershell:
		fmt.Fprintf(out, "Add this to your PowerShell profile:\n  . %s\n", scriptPath)
	}
	return nil
}

func uninstall(program string, shell Shell, home string, out io.Writer) error {
	scriptPath, err := ScriptPath(shell, home, program)
	if err != nil {
		return err
	}
	if _, err := os.Stat(scriptPath); os.IsNotExist(err) {
		return fmt.Errorf("completion not installed for %s (expected at %s)", shell, scriptPath)
	}

	if shell == Bash {
		if err := setSourceLine(filepath.Join(home, ".bash_completion"), scriptPath, false); err != nil {
			fmt.Fprintf(out, "Warning: could not disable auto-load: %v\n", err)
		}
	}
	if err := os.Remove(scriptPath); err != nil {
		return fmt.Errorf("failed to remove completion file: %w", err)
	}

	fmt.Fprintf(out, "Shell completion removed for %s (%s)\nRestart your shell to complete removal.\n", shell, scriptPath)
	return nil
}

func writeScript(rootCmd *cobra.Command, shell Shell, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create completion file: %w", err)
	}
	defer file.Close()

	switch shell {
	case Bash:
		return rootCmd.GenBashCompletionV2(file, true)
	case Zsh:
		return rootCmd.GenZshCompletion(file)
	case Fish:
		return rootCmd.GenFishCompletion(file, true)
	case Powershell:
		return rootCmd.GenPowerShellCompletionWithDesc(file)
	default:
		return fmt.Errorf("unsupported shell: %s", shell)
	}
}
