/*
Package events provides an in-process publish/subscribe broker for project
lifecycle events.

The controller, schedulers and the result transfer server publish events as
experiments move through their lifecycle; subscribers (the metrics collector,
log sinks) receive them over buffered channels. Delivery is best effort: a
subscriber with a full buffer misses events rather than blocking a run.
*/
package events
