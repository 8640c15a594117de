// Command cauldron finds the ingredient allocation that maximizes the
// weighted probability of the desired cauldron effects.
package main

import (
	"os"

	"k8s.io/klog/v2"
)

func main() {
	defer klog.Flush()
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
