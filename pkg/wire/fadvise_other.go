//go:build !linux
// +build !linux

package wire

import "os"

func AdviseSequential(*os.File) {}
