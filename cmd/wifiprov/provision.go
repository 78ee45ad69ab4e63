package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"

	"github.com/rpiwc/wifiprov-go/pkg/provisioning"
	"github.com/rpiwc/wifiprov-go/pkg/wire"
)

// historyPath holds entered network names across runs.
const historyPath = "~/.wifiprov_history"

var errNoNetwork = errors.New("no network chosen")

func newProvisionCmd() *cobra.Command {
	var ssid, psk string

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Send network credentials to a device",
		Long: `Connects to the device, lists the networks it can see and sends the
chosen network and passphrase. Missing values are asked for interactively.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(opts.Verbose)

			conn, err := connect(cmd.Context(), opts, logger)
			if err != nil {
				return err
			}
			client := provisioning.NewClient(conn, opts.Timeout)
			defer client.Close()

			out := cmd.OutOrStdout()
			names, err := client.Networks()
			switch {
			case errors.Is(err, wire.ErrScanFailed):
				fmt.Fprintln(out, "The device could not scan for networks. Enter the network name manually.")
			case err != nil:
				return err
			default:
				printNetworks(out, names)
			}

			var rl *readline.Instance
			if ssid == "" || psk == "" {
				if rl, err = newPrompt(); err != nil {
					return err
				}
				defer rl.Close()
			}

			if ssid == "" {
				line, err := rl.Readline()
				if err != nil {
					return errNoNetwork
				}
				if ssid, err = chooseNetwork(names, line); err != nil {
					return err
				}
			}
			if psk == "" {
				secret, err := rl.ReadPassword("passphrase: ")
				if err != nil {
					return err
				}
				psk = string(secret)
			}

			fmt.Fprintf(out, "Joining %q ...\n", ssid)
			value, err := client.Provision(ssid, psk)
			if err != nil {
				return err
			}
			return printResult(out, value)
		},
	}

	cmd.Flags().StringVar(&ssid, "ssid", "", "network name (prompted when empty)")
	cmd.Flags().StringVar(&psk, "psk", "", "network passphrase (prompted when empty)")
	return cmd
}

func newPrompt() (*readline.Instance, error) {
	cfg := &readline.Config{
		Prompt:          "network> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	}
	if path, err := homedir.Expand(historyPath); err == nil {
		cfg.HistoryFile = path
	}
	rl, err := readline.NewEx(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return rl, nil
}

func printNetworks(w io.Writer, names []string) {
	if len(names) == 0 {
		fmt.Fprintln(w, "No networks found. Enter a network name manually.")
		return
	}
	fmt.Fprintln(w, "Networks in range:")
	for i, name := range names {
		fmt.Fprintf(w, "  %2d) %s\n", i+1, name)
	}
}

// chooseNetwork resolves a prompt answer: a list number selects that
// network, anything else is taken as the network name.
func chooseNetwork(names []string, answer string) (string, error) {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", errNoNetwork
	}
	if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(names) {
		return names[n-1], nil
	}
	return answer, nil
}

func printResult(w io.Writer, value string) error {
	switch value {
	case wire.NotSet:
		fmt.Fprintln(w, "The device saved the network but did not obtain an address.")
		fmt.Fprintln(w, "Check the passphrase and try again.")
	case wire.PermissionError:
		return errors.New("the device could not write its wireless configuration (permission denied)")
	default:
		fmt.Fprintf(w, "Connected. Device address: %s\n", value)
	}
	return nil
}
