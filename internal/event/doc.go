// Package event provides the synchronous notification bus of the timeline
// core.
//
// Entities publish change notifications after a mutation has completed and
// their locks are released; observers (views, scripts, the CLI) subscribe to
// topic patterns.
//
// # Event Topics
//
// Events use hierarchical topics with dot notation:
//
//	timeline.item.changed
//	stack.fade.in
//	stack.keyframes
//
// # Wildcard Subscriptions
//
// Subscriptions can use wildcards:
//   - "*" matches exactly one segment: "stack.*" matches "stack.changed"
//   - "**" matches zero or more segments: "timeline.**" matches "timeline.item.changed"
//
// # Usage
//
//	bus := event.NewBus()
//	sub, _ := bus.Subscribe("timeline.item.*", func(e event.Event) {
//	    change := e.Payload.(timeline.ItemChange)
//	    ...
//	})
//	defer bus.Unsubscribe(sub)
//
// Handlers run on the publishing goroutine in subscription order. A panicking
// handler is recovered and reported to the panic handler; delivery continues
// with the next subscriber.
package event
