// Package version reports the build version of a broadband binary.
//
// Values are set at compile time via -ldflags:
//
//	go build -ldflags "-X github.com/kbukum/broadband/version.Version=1.0.0"
//
// and otherwise filled from the VCS information stamped by the Go toolchain.
package version
