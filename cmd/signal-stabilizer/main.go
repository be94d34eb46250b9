// Command signal-stabilizer samples GPIO inputs, debounces each one and
// publishes stable state changes to MQTT.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
