// Package monitor watches an optical drive for disc insertion and removal.
//
// A Monitor polls disc.Source.DiscReady on a fixed interval and, when udev
// netlink is available, polls immediately on kernel media-change events for
// the configured device. Polls that may reprobe the medium are rate limited
// so a drive that keeps reporting a disc it cannot read does not spin in a
// tight reopen loop. Transitions are reported to a Handler as Events.
//
// The Monitor owns the only lock around its Source; other goroutines reach
// the drive through Monitor.Do.
package monitor
