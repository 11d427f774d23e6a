// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package broadcast fans vote deltas out to everyone watching a poll.

A Hub keeps one room per poll with at least one member. Rooms are created by
the first Join and removed by the last Leave. Each membership owns a bounded
queue and a goroutine that delivers it in order, so a slow subscriber only
delays itself. When its queue is full the oldest delta is discarded; because
every delta carries the whole tally, the newest one is always enough to catch
up.

Publishes to one room are serialized, so all members see deltas in the same
order. A subscriber whose Deliver fails is evicted from that room; the error
is logged and never reaches the publisher.
*/
package broadcast
