// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package smtp delivers relay notifications over e-mail.
package smtp

import (
	"context"
	"fmt"
	"strings"

	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/alerting"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/internal/email"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/errors"
)

const footer = "Sent by AIoT relay"

var _ alerting.Notifier = (*notifier)(nil)

type notifier struct {
	agent *email.Agent
	to    []string
}

// New instantiates SMTP message notifier.
func New(agent *email.Agent, to string) alerting.Notifier {
	return &notifier{
		agent: agent,
		to:    strings.Split(to, ","),
	}
}

func (n *notifier) Notify(_ context.Context, severity alerting.Severity, message string) error {
	subject := fmt.Sprintf("AIoT relay %s alert", severity)
	if err := n.agent.Send(n.to, subject, severity.String(), message+"\n\n"+footer); err != nil {
		return errors.Wrap(errors.ErrNotify, err)
	}
	return nil
}
