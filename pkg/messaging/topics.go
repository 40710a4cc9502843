// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"strings"

	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/errors"
)

// ErrMalformedTopic indicates a topic outside the {domain}/{deviceID}/{kind} convention.
var ErrMalformedTopic = errors.New("malformed topic")

const topicParts = 3

// Topic builds the broker topic for the given domain, device and kind
// following the {domain}/{deviceID}/{kind} convention.
func Topic(domain, deviceID string, kind Kind) string {
	return domain + "/" + deviceID + "/" + kind.String()
}

// WildcardTopic builds a topic matching the given kind for all devices
// of the domain. The wildcard token is transport-specific.
func WildcardTopic(domain, wildcard string, kind Kind) string {
	return domain + "/" + wildcard + "/" + kind.String()
}

// ParseTopic splits a broker topic into domain, device id and kind.
func ParseTopic(topic string) (domain, deviceID string, kind Kind, err error) {
	parts := strings.Split(topic, "/")
	if len(parts) != topicParts {
		return "", "", 0, errors.Wrap(ErrMalformedTopic, errors.New(topic))
	}
	kind, err = ParseKind(parts[2])
	if err != nil {
		return "", "", 0, errors.Wrap(ErrMalformedTopic, err)
	}
	return parts[0], parts[1], kind, nil
}
