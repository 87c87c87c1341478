// Package events carries backup lifecycle notifications from the
// orchestrator to whatever UI surface is listening. Per-subscriber delivery
// preserves publish order; cross-subscriber timing is unspecified.
package events
