// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

//go:build rabbitmq
// +build rabbitmq

package brokers

import (
	"log"
	"log/slog"

	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/messaging"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/messaging/rabbitmq"
)

// AllDevicesWildcard is the single-level device wildcard understood by
// the configured broker.
const AllDevicesWildcard = "+"

func init() {
	log.Println("The binary was build using RabbitMQ as the message broker")
}

// NewPubSub returns the cloud-side PubSub for the configured broker.
// The queue parameter is accepted for interface parity with the NATS
// broker and used as the consumer queue name.
func NewPubSub(url, queue string, codec *messaging.Codec, logger *slog.Logger) (messaging.PubSub, error) {
	return rabbitmq.NewPubSub(url, codec, logger)
}
