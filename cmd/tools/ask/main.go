// cmd/tools/ask/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"procurement-assistant/internal/app"
	"procurement-assistant/internal/common/config"
	"procurement-assistant/internal/common/logger"
	"procurement-assistant/internal/models"
	"procurement-assistant/internal/pipeline/orchestrator"
)

type askOptions struct {
	cfgPath   string
	sessionID string
	filters   string
	asJSON    bool
	logLevel  string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &askOptions{}
	root := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask the procurement assistant a one-shot question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), strings.Join(args, " "), opts)
		},
		SilenceUsage: true,
	}
	root.Flags().StringVarP(&opts.cfgPath, "config", "c", "", "config file (default is configs/config.yaml)")
	root.Flags().StringVarP(&opts.sessionID, "session", "s", "cli", "session id used for rate limiting")
	root.Flags().StringVarP(&opts.filters, "filters", "f", "", `JSON filters, e.g. '{"priority":"HIGH"}'`)
	root.Flags().BoolVar(&opts.asJSON, "json", false, "print the full structured result")
	root.Flags().StringVar(&opts.logLevel, "log-level", "warn", "log level")
	return root
}

func run(ctx context.Context, out io.Writer, question string, opts *askOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(opts.cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var filters models.Filters
	if opts.filters != "" {
		if err := json.Unmarshal([]byte(opts.filters), &filters); err != nil {
			return fmt.Errorf("parse --filters: %w", err)
		}
	}

	log := logger.NewStructured(opts.logLevel, "console")
	assistant, err := app.Build(ctx, cfg, app.Options{ServiceName: "ask"}, log)
	if err != nil {
		return err
	}
	defer assistant.Close()

	result := assistant.Orchestrator.Process(ctx, orchestrator.Request{
		Text:      question,
		SessionID: opts.sessionID,
		Filters:   filters,
	})
	return render(out, result, opts.asJSON)
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func render(out io.Writer, result models.QueryResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	if result.Plan != nil {
		fmt.Fprintf(out, "[%s] %s\n\n", result.Plan.Type, result.Plan.Description)
	}
	if result.Notice != "" && result.Notice != result.Response {
		fmt.Fprintf(out, "%s\n\n", result.Notice)
	}
	fmt.Fprintln(out, result.Response)

	if !result.Success && result.Plan == nil {
		return fmt.Errorf("query rejected")
	}
	return nil
}
