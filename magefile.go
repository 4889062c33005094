//go:build mage
// +build mage

package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/magefile/mage/mg"
)

// Default target to run when none is specified
// If not set, running mage will list available targets
var Default = Build

func Build() error {
	mg.Deps(BuildAligner, BuildExtractFrames)
	fmt.Println("Compilation finished")
	return nil
}

// aligner links against libhdf5, so the CGO flags of the environment are
// forwarded.
func BuildAligner() error {
	fmt.Println("Building aligner executable...")
	return goBuild("./bin/aligner", "./aligner", true)
}

func BuildExtractFrames() error {
	fmt.Println("Building extractFrames executable...")
	return goBuild("./bin/extractFrames", "./extractFrames", false)
}

// Test runs the library tests that do not need libhdf5.
func Test() error {
	cmd := exec.Command("go", "test", "./pkg/", "./pkg/logging/", "./extractFrames/")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// TestHDF5 runs the storage tests, which need libhdf5 at link time.
func TestHDF5() error {
	cmd := exec.Command("go", "test", "./pkg/h5store/")
	cmd.Env = append(os.Environ(), "CGO_ENABLED=1")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func goBuild(output string, pkg string, cgo bool) error {
	cmd := exec.Command("go", "build", "-o", output, pkg)
	cmd.Env = os.Environ()
	if cgo {
		cmd.Env = append(cmd.Env,
			"CGO_ENABLED=1",
			fmt.Sprintf("CGO_LDFLAGS=%s", os.Getenv("CGO_LDFLAGS")),
			fmt.Sprintf("CGO_CFLAGS=%s", os.Getenv("CGO_CFLAGS")))
	}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
