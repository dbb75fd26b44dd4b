// Signal handling for non-Windows platforms. Both SIGINT and SIGTERM stop a
// running build or watch loop.

//go:build !windows

package main

import (
	"os"
	"os/signal"
	"syscall"
)

// ///////////////////////////////////////////////
// Signal Handling
// ///////////////////////////////////////////////

// signalChannel returns a channel that receives SIGINT and SIGTERM. It is
// buffered so a signal is not lost while a rebuild is in progress.
func signalChannel() <-chan os.Signal {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	return ch
}
