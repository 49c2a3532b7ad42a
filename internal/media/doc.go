// Package media defines the narrow surface of the external media engine that
// the timeline core talks to, together with an in-memory implementation.
//
// # Services and Filters
//
// A Service is an attachment point: a producer or transition carrying an
// ordered list of attached filters and a string property bag. Filters are
// opaque slots identified by pointer; their position in the list is their
// processing order.
//
// # Handles
//
// Owners never hold a Service strongly. They keep a Handle, a weak reference
// that stops resolving once the producer is closed or collected:
//
//	h := media.NewHandle(producer)
//	if svc, ok := h.Lock(); ok {
//	    svc.Set("kdenlive:activeeffect", "0")
//	}
//
// # Profiles
//
// A Profile carries frame rate and sample rate. It is passed explicitly to
// code that converts between wall time and frames; there is no global
// profile.
package media
