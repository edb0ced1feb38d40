// Package snowflake issues 64-bit ids that sort by creation time:
// 41 bits of milliseconds since Epoch, 10 bits of node, 12 bits of sequence.
package snowflake

import (
	"errors"
	"sync"
	"time"
)

const (
	nodeBits  = 10
	stepBits  = 12
	nodeMax   = -1 ^ (-1 << nodeBits)
	stepMask  = -1 ^ (-1 << stepBits)
	timeShift = nodeBits + stepBits
	nodeShift = stepBits
)

// Epoch is 2024-01-01 00:00:00 UTC.
var Epoch = time.UnixMilli(1704067200000).UTC()

var ErrNodeRange = errors.New("snowflake: node number must be between 0 and 1023")

type Generator struct {
	mu    sync.Mutex
	last  int64
	node  int64
	step  int64
	epoch int64
	now   func() time.Time
}

func NewGenerator(node int64) (*Generator, error) {
	if node < 0 || node > nodeMax {
		return nil, ErrNodeRange
	}
	return &Generator{
		node:  node,
		epoch: Epoch.UnixMilli(),
		now:   time.Now,
	}, nil
}

// Next returns a fresh id together with the instant it encodes.
func (g *Generator) Next() (int64, time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now().UnixMilli()
	if now < g.last {
		// clock went backwards: keep issuing from the last known instant
		now = g.last
	}

	if now == g.last {
		g.step = (g.step + 1) & stepMask
		if g.step == 0 {
			for now <= g.last {
				now = g.now().UnixMilli()
			}
		}
	} else {
		g.step = 0
	}
	g.last = now

	id := ((now - g.epoch) << timeShift) | (g.node << nodeShift) | g.step
	return id, time.UnixMilli(now).UTC()
}

// Time extracts the creation instant of an id issued with the default epoch.
func Time(id int64) time.Time {
	return time.UnixMilli((id >> timeShift) + Epoch.UnixMilli()).UTC()
}

// Node extracts the node number of an id.
func Node(id int64) int64 {
	return (id >> nodeShift) & nodeMax
}
