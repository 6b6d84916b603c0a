package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/jpoutrin/portman-cli/internal/direnv"
	"github.com/spf13/cobra"
)

// NewInitCmd creates the init command
func NewInitCmd() *cobra.Command {
	var (
		shell     bool
		direnvOut bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Show setup instructions",
		Long: `Prints setup instructions for shell and direnv integration.

Examples:
  portman init
  portman init --direnv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			bold := color.New(color.Bold).SprintFunc()
			green := color.New(color.FgGreen).SprintFunc()
			dim := color.New(color.Faint).SprintFunc()

			if direnvOut {
				fmt.Println(bold("Add to your .envrc:"))
				fmt.Println(green(direnv.EnvrcContent()))
				return nil
			}

			if shell {
				fmt.Println(bold("Direnv helper function:"))
				fmt.Println(direnv.DirenvrcHelper())
				return nil
			}

			fmt.Println(bold("Portman Setup"))
			fmt.Println()
			fmt.Println("1. Install direnv if not already installed:")
			fmt.Println(dim("   brew install direnv  # macOS"))
			fmt.Println(dim("   apt install direnv   # Debian/Ubuntu"))
			fmt.Println()
			fmt.Println("2. Add to your project's .envrc:")
			fmt.Printf("   %s\n", green(`eval "$(portman export --auto)"`))
			fmt.Println()
			fmt.Println("3. Allow direnv:")
			fmt.Println(dim("   direnv allow"))
			fmt.Println()
			fmt.Println("4. Done! Ports will be allocated automatically.")
			fmt.Println()
			fmt.Println(dim("Tip: Run 'portman status' to see your allocations"))

			return nil
		},
	}

	cmd.Flags().BoolVar(&shell, "shell", false, "Output the direnvrc helper function")
	cmd.Flags().BoolVar(&direnvOut, "direnv", false, "Output the .envrc integration snippet")

	return cmd
}
