// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Limit query parameter.
	Limit uint64 = 10
	// Offset query parameter.
	Offset uint64 = 0
	// TTL of dispatched commands.
	TTL string = "1m"
)

func logJSONCmd(cmd cobra.Command, iList ...interface{}) {
	for _, i := range iList {
		m, err := json.MarshalIndent(i, "", "  ")
		if err != nil {
			logErrorCmd(cmd, err)
			return
		}

		fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n\n", string(m))
	}
}

func logUsageCmd(cmd cobra.Command, u string) {
	fmt.Fprintf(cmd.OutOrStdout(), "\nusage: %s\n\n", u)
}

func logErrorCmd(cmd cobra.Command, err error) {
	fmt.Fprintf(cmd.ErrOrStderr(), "\nerror: %s\n\n", err.Error())
}

func logOKCmd(cmd cobra.Command) {
	fmt.Fprintf(cmd.OutOrStdout(), "\nok\n\n")
}

func logCreatedCmd(cmd cobra.Command, e string) {
	fmt.Fprintf(cmd.OutOrStdout(), "\ncreated: %s\n\n", e)
}
