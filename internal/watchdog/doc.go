// Package watchdog drives the restart sequence once outdated mods were
// detected: announce, count down minute by minute, kick stragglers, save,
// quit. The countdown exits early the moment the server empties, and any
// console failure aborts the whole sequence so the pending change is retried
// on the next invocation instead of being lost.
package watchdog
