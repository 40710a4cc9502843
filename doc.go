// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package relay contains the core abstractions of the AIoT edge-to-cloud
// telemetry relay: identity generation, service health and version
// reporting shared by all relay services.
package relay
