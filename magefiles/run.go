//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Runs the game in a window through the Vulkan backend.
func (Run) Engine() error {
	fmt.Println("Run engine...")
	_, err := executeCmd("go", withArgs("run", ".", "run"), withStream())
	return err
}

// Runs 120 frames on the headless backend.
func (Run) Headless() error {
	mg.Deps(Build.Binary)
	_, err := executeCmd("bin/skirmish", withArgs("run", "--headless", "--frames", "120"), withStream())
	return err
}
