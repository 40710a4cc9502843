// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"encoding/json"

	relaysdk "github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/sdk"
	"github.com/spf13/cobra"
)

// NewCommandsCmd returns command dispatch commands.
func NewCommandsCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:   "commands [send <device_id> <action> [parameters_json]]",
		Short: "Device commands",
		Long:  "List outstanding commands or dispatch a new one",
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)
				return
			}
			page, err := sdk.OutstandingCommands(cmd.Context())
			if err != nil {
				logErrorCmd(*cmd, err)
				return
			}

			logJSONCmd(*cmd, page)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "send <device_id> <action> [parameters_json]",
		Short: "Send command",
		Long:  "Dispatch a command carrying absolute target state to a device",
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) < 2 || len(args) > 3 {
				logUsageCmd(*cmd, cmd.Use)
				return
			}

			req := relaysdk.CommandRequest{
				Action: args[1],
				TTL:    TTL,
			}
			if len(args) == 3 {
				if err := json.Unmarshal([]byte(args[2]), &req.Parameters); err != nil {
					logErrorCmd(*cmd, err)
					return
				}
			}

			id, err := sdk.SendCommand(cmd.Context(), args[0], req)
			if err != nil {
				logErrorCmd(*cmd, err)
				return
			}

			logCreatedCmd(*cmd, id)
		},
	})

	return &cmd
}
