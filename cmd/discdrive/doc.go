// Package main implements the discdrive command line.
//
// Device commands (info, toc, read, subq) open the configured drive for the
// duration of one command under a shared lock; watch runs the daemon in the
// foreground and holds the drive exclusively until interrupted.
package main
