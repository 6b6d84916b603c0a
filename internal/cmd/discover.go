package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/jpoutrin/portman-cli/internal/discovery"
	"github.com/spf13/cobra"
)

// NewDiscoverCmd creates the discover command
func NewDiscoverCmd() *cobra.Command {
	var composeFile string

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Show services that would be booked from compose files",
		Long: `Scans docker-compose files and devcontainer.json for services needing a
port allocation, without booking anything.

Examples:
  portman discover
  portman discover -f docker-compose.prod.yml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := discovery.DiscoverServices("", composeFile)
			if err != nil {
				return err
			}

			if len(services) == 0 {
				fmt.Println("No services discovered")
				return nil
			}

			green := color.New(color.FgGreen).SprintFunc()
			dim := color.New(color.Faint).SprintFunc()

			for _, svc := range services {
				fmt.Printf("%s  container port %d  %s=?  %s\n",
					green(svc.Name), svc.ContainerPort, svc.EnvVar, dim(svc.Source))
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&composeFile, "compose-file", "f", "", "Path to docker-compose file")

	return cmd
}
