// Package trace is the structured event log of cg.
//
// Events are span begin/end pairs and instant points, each tagged with a
// Scope. The Level of a tracer decides which scopes pass:
//
//	phase   driver and pass events
//	detail  + one event per expanded instance
//	debug   + one event per resolved call site
//
// Sinks:
//
//	StreamTracer  writes text or NDJSON lines as events arrive
//	RingTracer    keeps the last events and is dumped when cg panics
//	MultiTracer   fans out to several sinks
//
// The tracer and the enclosing span travel in a context:
//
//	ctx = trace.WithTracer(ctx, t)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopePass, "build", trace.CurrentSpan(ctx).SpanID)
//	defer span.End("")
package trace
