package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/example/ocpi-client/internal/client"
	"github.com/example/ocpi-client/internal/models"
	"github.com/example/ocpi-client/internal/worker"
)

func newOpsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ops",
		Short: "Lists the operations the client can issue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "OPERATION\tMODULE\tMETHOD")
			for _, op := range client.Operations() {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", op.Name, op.Module, op.Method)
			}
			return tw.Flush()
		},
	}
}

func newGetLocationCommand(flags *probeFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "get-location <country-code> <party-id> <location-id> [evse-uid [connector-id]]",
		Short: "Fetches a location, EVSE or connector as stored by the eMSP",
		Args:  cobra.RangeArgs(3, 5),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := client.Request{CountryCode: args[0], PartyID: args[1], ID: args[2]}
			op := "locations.get"
			if len(args) > 3 {
				req.EVSEUID = args[3]
				op = "locations.get.evse"
			}
			if len(args) > 4 {
				req.ConnectorID = args[4]
				op = "locations.get.connector"
			}
			return invoke(cmd, flags, op, req)
		},
	}
}

func newGetTariffCommand(flags *probeFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "get-tariff <country-code> <party-id> <tariff-id>",
		Short: "Fetches a tariff as stored by the eMSP",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return invoke(cmd, flags, "tariffs.get", client.Request{CountryCode: args[0], PartyID: args[1], ID: args[2]})
		},
	}
}

func newDeleteTariffCommand(flags *probeFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-tariff <country-code> <party-id> <tariff-id>",
		Short: "Removes a tariff from the eMSP",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return invoke(cmd, flags, "tariffs.delete", client.Request{CountryCode: args[0], PartyID: args[1], ID: args[2]})
		},
	}
}

func newGetTokensCommand(flags *probeFlags) *cobra.Command {
	req := client.Request{}
	cmd := &cobra.Command{
		Use:   "get-tokens",
		Short: "Fetches one page of tokens from the eMSP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return invoke(cmd, flags, "tokens.get", req)
		},
	}
	cmd.Flags().IntVar(&req.Offset, "offset", 0, "page offset")
	cmd.Flags().IntVar(&req.Limit, "limit", 0, "page size, at most 1000")
	cmd.Flags().StringVar(&req.DateFrom, "date-from", "", "only tokens updated at or after this RFC 3339 time")
	cmd.Flags().StringVar(&req.DateTo, "date-to", "", "only tokens updated before this RFC 3339 time")
	return cmd
}

func newInvokeCommand(flags *probeFlags) *cobra.Command {
	var requestFile string
	cmd := &cobra.Command{
		Use:   "invoke <operation>",
		Short: "Runs any operation from a JSON push request file",
		Long: `Runs any operation listed by "ocpi-probe ops". The request file uses the
push worker record layout (country_code, party_id, id, evse_uid, connector_id,
url, payload and so on); its operation field is ignored.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := client.Request{}
			if requestFile != "" {
				raw, err := os.ReadFile(requestFile)
				if err != nil {
					return fmt.Errorf("read request file: %w", err)
				}
				var push models.PushRequest
				if err := json.Unmarshal(raw, &push); err != nil {
					return fmt.Errorf("decode request file: %w", err)
				}
				if req, err = worker.RequestFor(&push); err != nil {
					return err
				}
			}
			return invoke(cmd, flags, args[0], req)
		},
	}
	cmd.Flags().StringVarP(&requestFile, "file", "f", "", "JSON request file")
	return cmd
}
