package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/proxyfetch/internal/fetch"
)

func newFetchCmd() *cobra.Command {
	var (
		proxyType  string
		maxRetries int
		timeout    time.Duration
		pretty     bool
	)
	cmd := &cobra.Command{
		Use:   "fetch URL...",
		Short: "Fetches URLs once and prints the batch summary as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			summary, err := appInstance.Orchestrator().Run(cmd.Context(), fetch.BatchRequest{
				URLs:       args,
				ProxyType:  proxyType,
				MaxRetries: maxRetries,
				Timeout:    timeout,
			})
			if err != nil {
				return fmt.Errorf("run batch: %w", err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			if pretty {
				enc.SetIndent("", "  ")
			}
			if err := enc.Encode(summary); err != nil {
				return fmt.Errorf("encode summary: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&proxyType, "proxy-type", fetch.ProxyTypeDatacenter, "proxy category to use")
	cmd.Flags().IntVar(&maxRetries, "max-retries", 0, "attempts per URL (0 uses the configured default)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "per-attempt timeout (0 uses the configured default)")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "indent the JSON output")
	return cmd
}
