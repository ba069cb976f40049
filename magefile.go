//go:build mage
// +build mage

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

func Build() {
	mg.Deps(BuildMain)
}

func BuildMain() error {
	return sh.Run("go", "build", "-o", "build/beefy-client", "main.go")
}

func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Fixtures writes a checkpoint config and signed submissions to build/fixtures.
func Fixtures() error {
	mg.Deps(BuildMain)
	return sh.RunV("build/beefy-client", "generate-fixture", "--out-dir", "build/fixtures")
}

func Lint() error {
	return sh.Run("revive", "-config", "revive.toml", "./...")
}

func Install() error {
	return sh.Run("go", "build", "-o", "$GOPATH/bin/beefy-client", "main.go")
}
