/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2022 WireGuard LLC. All Rights Reserved.
 * Copyright (C) 2023 HashiCorp Inc.
 */

package ikeguard

// state is the closed sum of per-exchange session states. Exactly one
// variant is installed on an SA at a time; the SA's HandleMessage driver
// type-switches over the variants, so adding a state without handling it
// there is a compile-visible gap, not a silent dispatch miss.
//
// A variant is consumed exactly once: processMessage either fails
// terminally, leaving the variant installed for the caller to dispose of,
// or installs its successor and destroys itself. It is never invoked
// twice.
type state interface {
	name() string
	// destroy releases the resources the variant owns. Idempotent.
	destroy()
}

// initRequested: the IKE_SA_INIT request is on the wire, waiting for the
// responder's reply. Owns the session's ephemeral exchange material.
type initRequested struct {
	exch *exchangeContext

	// dhGroupPriority records which configured group preference opened
	// the exchange; kept for INVALID_KE_PAYLOAD renegotiation and for
	// logging on failure paths.
	dhGroupPriority uint16
}

func (st *initRequested) name() string { return "IKE_SA_INIT_REQUESTED" }

func (st *initRequested) destroy() {
	st.exch.destroy()
	st.exch = nil
}

// authRequested: the IKE_AUTH request is on the wire. The exchange
// material is gone (wiped by the predecessor); everything this state
// needs lives in the SA's keyring.
type authRequested struct{}

func (st *authRequested) name() string { return "IKE_AUTH_REQUESTED" }
func (st *authRequested) destroy()     {}

// established: mutual authentication succeeded. Child exchanges are not
// part of this library, so no message is expected here.
type established struct{}

func (st *established) name() string { return "ESTABLISHED" }
func (st *established) destroy()     {}

// dead: the session was torn down or gave up; all material is wiped.
type dead struct{}

func (st *dead) name() string { return "DEAD" }
func (st *dead) destroy()     {}
