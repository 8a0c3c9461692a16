// Command occusim simulates presence/absence observations from a known
// occurrence curve and compares how GLM, GAM and boosted-tree fits recover it.
package main

import (
	"context"
	"os"
)

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
