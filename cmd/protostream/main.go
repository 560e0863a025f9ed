// Command protostream encodes, decodes and inspects protobuf wire data using
// .proto schemas loaded at runtime.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
