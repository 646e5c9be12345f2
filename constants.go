/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2022 WireGuard LLC. All Rights Reserved.
 * Copyright (C) 2023 HashiCorp Inc.
 */

package ikeguard

import "time"

/* Protocol timing constants */

const (
	defaultNonceSize = 32

	// Retransmission of the last sent request follows an exponential
	// schedule with jitter; after maxRetransmitTries the session is
	// declared dead.
	retransmitTimeout     = time.Second * 4
	retransmitBackoff     = 2
	maxRetransmitTries    = 5
	retransmitJitterMaxMs = 334
)
