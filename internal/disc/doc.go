// Package disc exposes a physical optical drive as a random-access sector
// source for an emulated disc subsystem.
//
// IOCtlSource owns the device handle and the cached media geometry. Reopen
// probes DVD structure before the CD table of contents, the readers serve
// 2048-byte cooked and 2352-byte raw (MSF-addressed) sectors, and DiscReady
// tracks insertion and removal. Consumers program against the Source
// interface so other backends can be substituted.
//
// Nothing in this package locks: a Source must only see one call at a time.
package disc
