//go:build windows

package main

import (
	"os"
	"os/signal"
)

// notifySignals forwards Ctrl+C so a run stops after its current iteration.
func notifySignals(ch chan<- os.Signal) {
	signal.Notify(ch, os.Interrupt)
}
