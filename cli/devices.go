// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package cli

import "github.com/spf13/cobra"

// NewDevicesCmd returns device state commands.
func NewDevicesCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:   "devices [state <device_id>]",
		Short: "Device states",
		Long:  "List the tracked fleet or inspect the state of one device",
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)
				return
			}
			page, err := sdk.DeviceStates(cmd.Context(), Offset, Limit)
			if err != nil {
				logErrorCmd(*cmd, err)
				return
			}

			logJSONCmd(*cmd, page)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "state <device_id>",
		Short: "View device state",
		Long:  "View the last telemetry, command and ack of a device",
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)
				return
			}
			state, err := sdk.DeviceState(cmd.Context(), args[0])
			if err != nil {
				logErrorCmd(*cmd, err)
				return
			}

			logJSONCmd(*cmd, state)
		},
	})

	return &cmd
}
