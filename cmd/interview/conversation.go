package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/interviewos/internal/apiclient"
)

func newStatusCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status <conversation-id>",
		Short: "Show the provider's view of a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := apiclient.New(root.gatewayURL).GetConversation(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("could not get conversation: %w", err)
			}
			var pretty any
			if err := json.Unmarshal(doc, &pretty); err != nil {
				return fmt.Errorf("could not decode conversation: %w", err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(pretty)
		},
	}
}

func newEndCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "end <conversation-id>",
		Short: "End a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := apiclient.New(root.gatewayURL).EndConversation(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("could not end conversation: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Conversation %s ended.\n", args[0])
			return nil
		},
	}
}
