// Package events defines the domain events emitted on the event bus after a
// transaction commits.
//
// Available event types:
//   - AllocationEvent: outcome of one journey finalization
//   - RemovalEvent: vehicle removed from a journey
//   - CrewEvent: lead assignment, decline or confirmation
//   - SweepEvent: completion of a T-24 sweep
//   - NotifyEvent: delivery result of one notification
package events
