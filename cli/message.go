// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/errors"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/messaging"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/messaging/mqtt"
	"github.com/spf13/cobra"
)

// BrokerURL is the MQTT broker address used by the publish command.
var BrokerURL = "tcp://localhost:1883"

var errBrokerTimeout = errors.New("timed out connecting to the broker")

// NewMessagesCmd returns the telemetry publish command.
func NewMessagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "publish <domain> <device_id> <payload_json>",
		Short: "Publish telemetry",
		Long:  "Publish one telemetry envelope through the MQTT broker, for testing pipelines end to end",
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 3 {
				logUsageCmd(*cmd, cmd.Use)
				return
			}

			var payload messaging.Payload
			if err := json.Unmarshal([]byte(args[2]), &payload); err != nil {
				logErrorCmd(*cmd, err)
				return
			}

			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			cfg := mqtt.Config{
				Address:   BrokerURL,
				ClientID:  "relay-cli",
				SpillPath: filepath.Join(os.TempDir(), "relay-cli-spill.q"),
			}
			pubsub, err := mqtt.NewPubSub(cmd.Context(), cfg, messaging.NewCodec(), logger)
			if err != nil {
				logErrorCmd(*cmd, err)
				return
			}
			defer pubsub.Close()

			// Connection establishment is asynchronous.
			deadline := time.Now().Add(10 * time.Second)
			for pubsub.State() != messaging.Connected {
				if time.Now().After(deadline) {
					logErrorCmd(*cmd, errBrokerTimeout)
					return
				}
				time.Sleep(100 * time.Millisecond)
			}

			env := messaging.Envelope{
				DeviceID:  args[1],
				Kind:      messaging.TelemetryKind,
				Timestamp: time.Now().UTC(),
				Payload:   payload,
			}
			topic := messaging.Topic(args[0], args[1], messaging.TelemetryKind)
			if err := pubsub.Publish(cmd.Context(), topic, env, messaging.AtLeastOnce); err != nil {
				logErrorCmd(*cmd, err)
				return
			}

			logOKCmd(*cmd)
		},
	}
}
