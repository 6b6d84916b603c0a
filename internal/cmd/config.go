package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// NewConfigCmd creates the config command
func NewConfigCmd() *cobra.Command {
	var (
		show     bool
		setRange string
	)

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage port range configuration",
		Long: `Shows or updates the port ranges scanned for each service.

Examples:
  portman config --show
  portman config --set-range postgres:5500-5599`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if show {
				return runConfigShow()
			}
			if setRange != "" {
				return runConfigSetRange(setRange)
			}
			fmt.Println("Use --show or --set-range")
			return nil
		},
	}

	cmd.Flags().BoolVar(&show, "show", false, "Show current configuration")
	cmd.Flags().StringVar(&setRange, "set-range", "", "Set port range: service:start-end")

	return cmd
}

func runConfigShow() error {
	reg, err := openRegistry()
	if err != nil {
		return err
	}
	defer func() { _ = reg.Close() }()

	ranges, err := reg.ListRanges()
	if err != nil {
		return err
	}

	green := color.New(color.FgGreen).SprintFunc()

	fmt.Println("Port Ranges")
	fmt.Println("===========")
	for _, pr := range ranges {
		fmt.Printf("%-20s %d-%d\n", green(pr.Service), pr.Start, pr.End)
	}

	return nil
}

func runConfigSetRange(spec string) error {
	service, start, end, err := parseRangeSpec(spec)
	if err != nil {
		return err
	}

	reg, err := openRegistry()
	if err != nil {
		return err
	}
	defer func() { _ = reg.Close() }()

	if err := reg.SetRange(service, start, end); err != nil {
		return err
	}

	green := color.New(color.FgGreen).SprintFunc()
	fmt.Println(green(fmt.Sprintf("Set range for %s: %d-%d", service, start, end)))
	return nil
}

// parseRangeSpec parses "service:start-end"
func parseRangeSpec(spec string) (service string, start, end int, err error) {
	parts := strings.SplitN(spec, ":", 2)
	if len(parts) != 2 || parts[0] == "" {
		return "", 0, 0, fmt.Errorf("range format should be service:start-end")
	}

	bounds := strings.SplitN(parts[1], "-", 2)
	if len(bounds) != 2 {
		return "", 0, 0, fmt.Errorf("range should be start-end")
	}

	start, err = strconv.Atoi(bounds[0])
	if err != nil {
		return "", 0, 0, fmt.Errorf("ports must be integers")
	}
	end, err = strconv.Atoi(bounds[1])
	if err != nil {
		return "", 0, 0, fmt.Errorf("ports must be integers")
	}

	return parts[0], start, end, nil
}
