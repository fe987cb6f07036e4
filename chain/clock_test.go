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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickClockBlockFromWallClock(t *testing.T) {
	genesis := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tc := NewTickClock(nil, genesis, time.Second)

	testCases := []struct {
		now           time.Time
		expectedBlock uint64
	}{
		{genesis, 0},
		{genesis.Add(999 * time.Millisecond), 0},
		{genesis.Add(time.Second), 1},
		{genesis.Add(90 * time.Second), 90},
		// Before genesis clamps to zero
		{genesis.Add(-time.Hour), 0},
	}
	for _, testCase := range testCases {
		tc.nowFunc = func() time.Time { return testCase.now }
		assert.Equal(t, testCase.expectedBlock, tc.Block())
	}
}

func TestTickClockBlockToTime(t *testing.T) {
	genesis := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tc := NewTickClock(nil, genesis, 2*time.Second)
	assert.Equal(t, genesis, tc.BlockToTime(0))
	assert.Equal(t, genesis.Add(20*time.Second), tc.BlockToTime(10))
}

func TestTickClockSubscribe(t *testing.T) {
	genesis := time.Now()
	tc := NewTickClock(nil, genesis, 10*time.Millisecond)
	sub := tc.Subscribe()
	tc.Start(context.Background())
	defer tc.Stop()

	select {
	case tick, ok := <-sub:
		require.True(t, ok, "subscriber channel closed unexpectedly")
		assert.Greater(t, tick.Block, uint64(0))
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for block tick")
	}
}

func TestTickClockStopClosesSubscribers(t *testing.T) {
	tc := NewTickClock(nil, time.Now(), time.Hour)
	sub := tc.Subscribe()
	tc.Start(context.Background())
	tc.Stop()

	select {
	case _, ok := <-sub:
		assert.False(t, ok, "expected subscriber channel to be closed")
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for channel close")
	}
	// Stop is idempotent
	tc.Stop()
}

func TestManualClock(t *testing.T) {
	mc := NewManualClock(100)
	assert.Equal(t, uint64(100), mc.Block())
	assert.Equal(t, uint64(103), mc.Advance(3))
	mc.Set(50)
	assert.Equal(t, uint64(50), mc.Block())
}
