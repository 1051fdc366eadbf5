//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Compiles the skirmish binary into bin/.
func (Build) Binary() error {
	_, err := executeCmd("go", withArgs("build", "-o", "bin/skirmish", "."), withStream())
	return err
}

// Tidies the module and regenerates generated sources.
func (Build) Tidy() error {
	return goTidy()
}

type Test mg.Namespace

// Runs every package test.
func (Test) All() error {
	_, err := executeCmd("go", withArgs("test", "./..."), withStream())
	return err
}

// Runs the buffer manager tests with the race detector.
func (Test) Draw() error {
	_, err := executeCmd("go", withArgs("test", "-race", "./engine/draw/...", "./engine/ecs/..."), withStream())
	return err
}
