package main

import (
	"encoding/json"
	"fmt"

	"sigaddr/registration"

	"github.com/spf13/cobra"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Generate JSON schema for registration files",
	Long:  "Generate the JSON schema of the registration file read by resolve --signatures",
	RunE: func(cmd *cobra.Command, args []string) error {
		bts, err := json.MarshalIndent(registration.Schema(), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal schema: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(bts))
		return nil
	},
}
