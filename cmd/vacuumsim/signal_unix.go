//go:build !windows

package main

import (
	"os"
	"os/signal"
	"syscall"
)

// notifySignals cancels runs, animations and the chart server on SIGINT or SIGTERM.
func notifySignals(ch chan<- os.Signal) {
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
}
