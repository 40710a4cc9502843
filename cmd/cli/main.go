// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package main contains relay-cli main function.
package main

import (
	"log"

	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/cli"
	sdk "github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/sdk"
	"github.com/spf13/cobra"
)

func main() {
	sdkConf := sdk.Config{
		RelayURL:        "http://localhost:9900",
		TLSVerification: false,
	}

	rootCmd := &cobra.Command{
		Use: "relay-cli",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cli.SetSDK(sdk.NewSDK(sdkConf))
		},
	}

	rootCmd.AddCommand(cli.NewDevicesCmd())
	rootCmd.AddCommand(cli.NewCommandsCmd())
	rootCmd.AddCommand(cli.NewMessagesCmd())
	rootCmd.AddCommand(cli.NewHealthCmd())

	rootCmd.PersistentFlags().StringVarP(
		&sdkConf.RelayURL,
		"relay-url",
		"r",
		sdkConf.RelayURL,
		"Relay service URL",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&sdkConf.TLSVerification,
		"tls-verification",
		"v",
		sdkConf.TLSVerification,
		"Verify the TLS certificate of the relay service",
	)

	rootCmd.PersistentFlags().StringVarP(
		&cli.BrokerURL,
		"broker-url",
		"b",
		cli.BrokerURL,
		"MQTT broker URL for publishing test envelopes",
	)

	rootCmd.PersistentFlags().Uint64VarP(
		&cli.Limit,
		"limit",
		"l",
		cli.Limit,
		"Limit query parameter",
	)

	rootCmd.PersistentFlags().Uint64VarP(
		&cli.Offset,
		"offset",
		"o",
		cli.Offset,
		"Offset query parameter",
	)

	rootCmd.PersistentFlags().StringVarP(
		&cli.TTL,
		"ttl",
		"t",
		cli.TTL,
		"Time to live of dispatched commands",
	)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
