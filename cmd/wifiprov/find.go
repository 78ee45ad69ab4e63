package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rpiwc/wifiprov-go/pkg/discovery"
)

func newFindCmd() *cobra.Command {
	var serviceType string

	cmd := &cobra.Command{
		Use:   "find [ssid]",
		Short: "Find provisioned devices on the local network",
		Long: `Browses mDNS for devices that announced themselves after provisioning.
With an ssid argument only the first device on that network is shown.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			browser := discovery.NewMDNSBrowser(discovery.BrowserConfig{ServiceType: serviceType})
			out := cmd.OutOrStdout()

			if len(args) == 1 {
				svc, err := browser.Find(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("no device announced on %q: %w", args[0], err)
				}
				printService(out, svc)
				return nil
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), discovery.BrowseTimeout)
			defer cancel()
			found, err := browser.Browse(ctx)
			if err != nil {
				return err
			}
			count := 0
			for svc := range found {
				printService(out, svc)
				count++
			}
			if count == 0 {
				fmt.Fprintln(out, "No provisioned devices found.")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&serviceType, "service-type", discovery.ServiceType, "DNS-SD service type")
	return cmd
}

func printService(w io.Writer, svc *discovery.ProvisionedService) {
	fmt.Fprintf(w, "%s\tssid=%s\taddress=%s", svc.Instance, svc.SSID, svc.Address)
	if len(svc.Addresses) > 0 {
		fmt.Fprintf(w, "\tseen=%s", strings.Join(svc.Addresses, ","))
	}
	fmt.Fprintln(w)
}
