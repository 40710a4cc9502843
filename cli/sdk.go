// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package cli

import relaysdk "github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/sdk"

// Keep SDK handle in global var.
var sdk relaysdk.SDK

// SetSDK sets the relay SDK instance.
func SetSDK(s relaysdk.SDK) {
	sdk = s
}
