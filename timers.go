/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2022 WireGuard LLC. All Rights Reserved.
 * Copyright (C) 2023 HashiCorp Inc.
 */

package ikeguard

import (
	"math/rand"
	"sync"
	"time"
)

// A saTimer manages the retransmission schedule of a session's
// outstanding request. It roughly copies the interface of the Linux
// kernel's struct timer_list.
type saTimer struct {
	*time.Timer
	modifyingLock sync.RWMutex
	runningLock   sync.Mutex
	isPending     bool
}

func (sa *SA) newTimer(expirationFunction func(*SA)) *saTimer {
	timer := &saTimer{}
	timer.Timer = time.AfterFunc(time.Hour, func() {
		timer.runningLock.Lock()
		defer timer.runningLock.Unlock()

		timer.modifyingLock.Lock()
		if !timer.isPending {
			timer.modifyingLock.Unlock()
			return
		}
		timer.isPending = false
		timer.modifyingLock.Unlock()

		expirationFunction(sa)
	})
	timer.Stop()
	return timer
}

func (timer *saTimer) Mod(d time.Duration) {
	timer.modifyingLock.Lock()
	timer.isPending = true
	timer.Reset(d)
	timer.modifyingLock.Unlock()
}

// Del is safe to call while holding the session lock; it never waits for
// a running expiration function, which may itself be blocked on that lock.
func (timer *saTimer) Del() {
	if timer == nil {
		return
	}
	timer.modifyingLock.Lock()
	timer.isPending = false
	timer.Stop()
	timer.modifyingLock.Unlock()
}

func (timer *saTimer) IsPending() bool {
	timer.modifyingLock.RLock()
	defer timer.modifyingLock.RUnlock()
	return timer.isPending
}

func expiredRetransmit(sa *SA) {
	sa.mu.Lock()
	defer sa.mu.Unlock()

	// raced with Shutdown or with the response arriving
	if sa.closed || sa.lastSentPacket == nil {
		return
	}

	attempts := sa.retransmitAttempts.Load()
	if attempts >= maxRetransmitTries {
		sa.log.Error("request did not complete, giving up", "attempts", attempts)
		sa.shutdownLocked()
		return
	}
	sa.retransmitAttempts.Add(1)

	sa.log.Debug("retransmitting request", "try", attempts+1)
	if err := sa.sender.Enqueue(sa.lastSentPacket); err != nil {
		sa.log.Warn("retransmission dropped", "error", err)
	}
	sa.retransmit.Mod(retransmitDelay(attempts + 1))
}

// retransmitDelay returns the exponential backoff for the given attempt,
// with jitter to keep restarting peers from synchronizing.
func retransmitDelay(attempt uint32) time.Duration {
	d := retransmitTimeout
	for i := uint32(0); i < attempt; i++ {
		d *= retransmitBackoff
	}
	return d + time.Millisecond*time.Duration(rand.Intn(retransmitJitterMaxMs))
}

func (sa *SA) timersInit() {
	sa.retransmit = sa.newTimer(expiredRetransmit)
}

/* Should be called after a request message is sent. */
func (sa *SA) timersRequestSent() {
	sa.retransmitAttempts.Store(0)
	sa.retransmit.Mod(retransmitDelay(0))
}

/* Should be called after the response to the outstanding request is processed. */
func (sa *SA) timersExchangeComplete() {
	sa.retransmit.Del()
	sa.retransmitAttempts.Store(0)
	sa.lastSentRequest = nil
	sa.lastSentPacket = nil
}
