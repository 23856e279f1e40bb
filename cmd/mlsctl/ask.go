package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/JeffBrines/RealEstateInsightsPub/internal/assistant"
)

func newAskCmd(a *app) *cobra.Command {
	var filters filterFlags
	cmd := &cobra.Command{
		Use:   "ask FILE QUESTION...",
		Short: "Ask a question about an export",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.load(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			timeout := time.Duration(a.cfg.TimeoutSec) * time.Second
			var runtime assistant.Runtime
			if a.cfg.APIKey != "" {
				runtime = assistant.NewClient(a.cfg.APIKey, a.cfg.BaseURL, timeout)
			}
			adapter := assistant.NewAdapter(runtime, assistant.Options{
				Model:       a.cfg.Model,
				MaxTokens:   a.cfg.MaxTokens,
				Temperature: a.cfg.Temperature,
				Timeout:     timeout,
			}, a.logger)

			active := filters.spec(cmd)
			answer := adapter.Ask(cmd.Context(), strings.Join(args[1:], " "), res.Records, &active)
			if answer.Degraded() && answer.Reason != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "note: answered locally (%s)\n", answer.Reason)
			}
			fmt.Fprintln(cmd.OutOrStdout(), answer.Answer)
			return nil
		},
	}
	filters.register(cmd)
	return cmd
}
