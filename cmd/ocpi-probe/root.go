package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/ocpi-client/internal/bootstrap"
	"github.com/example/ocpi-client/internal/client"
	"github.com/example/ocpi-client/internal/config"
	"github.com/example/ocpi-client/internal/logger"
	"github.com/example/ocpi-client/internal/observers"
	"github.com/example/ocpi-client/internal/ocpi"
)

// probeFlags are the connection settings shared by every sub-command.
type probeFlags struct {
	endpoints   string
	redisAddr   string
	version     string
	countryCode string
	partyID     string
	toCountry   string
	toParty     string
	timeout     time.Duration
	rawTokens   bool
	verbose     bool
}

func newRootCmd() *cobra.Command {
	flags := &probeFlags{}

	rootCmd := &cobra.Command{
		Use:   "ocpi-probe",
		Short: "Issues single OCPI calls to an eMSP and prints the outcome",
		Long: `Issues single CPO-side OCPI calls through the same pipeline as the push
worker and prints the outcome envelope as JSON. Endpoints come from a YAML
table (--endpoints) or a Redis endpoint store (--redis).`,
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.endpoints, "endpoints", os.Getenv("ENDPOINTS_FILE"), "YAML endpoint table")
	pf.StringVar(&flags.redisAddr, "redis", os.Getenv("ENDPOINTS_REDIS_ADDR"), "Redis endpoint store address")
	pf.StringVar(&flags.version, "ocpi-version", string(ocpi.V221), "OCPI version")
	pf.StringVar(&flags.countryCode, "country-code", os.Getenv("OCPI_COUNTRY_CODE"), "own country code")
	pf.StringVar(&flags.partyID, "party-id", os.Getenv("OCPI_PARTY_ID"), "own party id")
	pf.StringVar(&flags.toCountry, "to-country-code", "", "recipient country code, for hub routing")
	pf.StringVar(&flags.toParty, "to-party-id", "", "recipient party id, for hub routing")
	pf.DurationVar(&flags.timeout, "timeout", 30*time.Second, "call timeout")
	pf.BoolVar(&flags.rawTokens, "raw-tokens", false, "send credentials tokens without base64 encoding")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "log every pipeline notification to stderr")

	rootCmd.AddCommand(
		newOpsCommand(),
		newGetLocationCommand(flags),
		newGetTariffCommand(flags),
		newDeleteTariffCommand(flags),
		newGetTokensCommand(flags),
		newInvokeCommand(flags),
	)
	return rootCmd
}

// invoke wires a client from flags, runs one operation and prints its summary.
func invoke(cmd *cobra.Command, flags *probeFlags, operation string, req client.Request) error {
	version, err := ocpi.ParseVersion(flags.version)
	if err != nil {
		return err
	}

	cfg := &config.Config{}
	cfg.Party = config.PartyConfig{CountryCode: flags.countryCode, PartyID: flags.partyID}
	cfg.OCPI = config.OCPIConfig{Version: version, CallTimeout: flags.timeout, RawTokens: flags.rawTokens}
	cfg.Endpoints = config.EndpointsConfig{
		TablePath:         flags.endpoints,
		RedisAddr:         flags.redisAddr,
		RedisNamespace:    "ocpi:endpoints",
		InvalidateChannel: "ocpi:endpoints:invalidate",
		CacheTTL:          time.Minute,
	}

	level := "warn"
	if flags.verbose {
		level = "debug"
	}
	log, err := logger.New("ocpi-probe", "development", level)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	stack, err := bootstrap.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer stack.Close()
	stack.Notifier.Subscribe(observers.NewLogging(log))

	c := stack.Client
	if flags.toCountry != "" && flags.toParty != "" {
		c, err = client.New(stack.Pipeline,
			client.WithVersion(version),
			client.WithLogger(log),
			client.WithRecipient(flags.toCountry, flags.toParty),
		)
		if err != nil {
			return err
		}
	}

	summary, err := c.Invoke(ctx, operation, req)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), struct {
		Operation string `json:"operation"`
		Outcome   any    `json:"result"`
	}{operation, summary})
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
