//go:build !wasip1

// Command guest is the reference animation compiled as a matrix guest.
// It only does something useful when built for wasip1:
//
//	GOOS=wasip1 GOARCH=wasm go build -buildmode=c-shared -o guest.wasm ./cmd/guest
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Fprintln(os.Stderr, "guest must be built for wasip1:")
	fmt.Fprintln(os.Stderr, "  GOOS=wasip1 GOARCH=wasm go build -buildmode=c-shared -o guest.wasm ./cmd/guest")
	fmt.Fprintln(os.Stderr, "then run it with:")
	fmt.Fprintln(os.Stderr, "  matrix -wasm guest.wasm")
	os.Exit(2)
}
