// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package chain

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Clock supplies the current logical block. The registry components never
// read wall time directly; whatever the host considers "now" arrives through
// this interface.
type Clock interface {
	Block() uint64
}

// BlockTick represents a notification that a block boundary has been reached
type BlockTick struct {
	// Block is the logical block that just started
	Block uint64
	// BlockStart is the time when this block started
	BlockStart time.Time
}

// TickClock derives the logical block from wall-clock time relative to a
// genesis instant: block N spans [genesis + N*interval, genesis + (N+1)*interval).
// It ticks at each block boundary and notifies subscribers, so the node can
// stamp operations without waiting on an external chain.
type TickClock struct {
	logger      *slog.Logger
	genesis     time.Time
	interval    time.Duration
	subscribers []chan BlockTick
	mu          sync.RWMutex
	cancel      context.CancelFunc
	ctx         context.Context
	running     bool
	wg          sync.WaitGroup

	// For testing: allow injection of custom time source
	nowFunc func() time.Time
}

// NewTickClock creates a wall-clock-driven block clock with the given genesis
// time and block interval
func NewTickClock(
	logger *slog.Logger,
	genesis time.Time,
	interval time.Duration,
) *TickClock {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &TickClock{
		logger:      logger,
		genesis:     genesis,
		interval:    interval,
		subscribers: make([]chan BlockTick, 0),
		nowFunc:     time.Now,
	}
}

// Block returns the current logical block based on wall-clock time. Times
// before genesis map to block zero.
func (tc *TickClock) Block() uint64 {
	elapsed := tc.nowFunc().Sub(tc.genesis)
	if elapsed < 0 {
		return 0
	}
	return uint64(elapsed / tc.interval)
}

// BlockToTime returns the time when the given block starts
func (tc *TickClock) BlockToTime(block uint64) time.Time {
	return tc.genesis.Add(time.Duration(block) * tc.interval) //nolint:gosec
}

// Start begins the block boundary tick loop. Returns immediately; the loop
// runs in a goroutine until Stop or context cancellation.
func (tc *TickClock) Start(ctx context.Context) {
	tc.mu.Lock()
	if tc.running {
		tc.mu.Unlock()
		return
	}
	tc.running = true
	tc.ctx, tc.cancel = context.WithCancel(ctx)
	tc.mu.Unlock()

	tc.wg.Add(1)
	go tc.run()
}

// Stop halts the tick loop and closes all subscriber channels, unblocking
// any goroutines waiting on them
func (tc *TickClock) Stop() {
	tc.mu.Lock()
	if !tc.running {
		tc.mu.Unlock()
		return
	}
	tc.running = false
	if tc.cancel != nil {
		tc.cancel()
	}
	for _, ch := range tc.subscribers {
		close(ch)
	}
	tc.subscribers = nil
	tc.mu.Unlock()

	tc.wg.Wait()
}

// Subscribe returns a channel that will receive BlockTick notifications.
// The channel is buffered so a slow consumer skips ticks instead of
// stalling the clock loop.
func (tc *TickClock) Subscribe() <-chan BlockTick {
	ch := make(chan BlockTick, 1)
	tc.mu.Lock()
	tc.subscribers = append(tc.subscribers, ch)
	tc.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber channel and closes it
func (tc *TickClock) Unsubscribe(ch <-chan BlockTick) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	for i, sub := range tc.subscribers {
		if sub == ch {
			close(sub)
			tc.subscribers = append(tc.subscribers[:i], tc.subscribers[i+1:]...)
			return
		}
	}
}

func (tc *TickClock) run() {
	defer tc.wg.Done()

	logger := tc.logger.With("component", "block_clock")

	for {
		select {
		case <-tc.ctx.Done():
			return
		default:
		}

		// Sleep until the next block boundary
		now := tc.nowFunc()
		nextBlock := tc.Block() + 1
		nextStart := tc.BlockToTime(nextBlock)
		wait := nextStart.Sub(now)
		if wait > 0 {
			select {
			case <-tc.ctx.Done():
				return
			case <-time.After(wait):
			}
		}

		tick := BlockTick{
			Block:      nextBlock,
			BlockStart: nextStart,
		}
		logger.Debug(
			"block boundary",
			"block", tick.Block,
		)

		tc.mu.RLock()
		for _, ch := range tc.subscribers {
			// Non-blocking send; a full buffer means the subscriber
			// is still working on an earlier tick
			select {
			case ch <- tick:
			default:
			}
		}
		tc.mu.RUnlock()
	}
}

// ManualClock is a settable clock for tests and offline tooling. It never
// advances on its own.
type ManualClock struct {
	mu    sync.RWMutex
	block uint64
}

// NewManualClock creates a manual clock starting at the given block
func NewManualClock(block uint64) *ManualClock {
	return &ManualClock{block: block}
}

// Block returns the current block
func (mc *ManualClock) Block() uint64 {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.block
}

// Advance moves the clock forward by n blocks and returns the new value
func (mc *ManualClock) Advance(n uint64) uint64 {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.block += n
	return mc.block
}

// Set moves the clock to the given block. Moving backwards is allowed here
// so tests can exercise non-monotonic host behavior.
func (mc *ManualClock) Set(block uint64) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.block = block
}
