package core

import (
	"github.com/cockroachdb/errors"
)

var (
	ErrSwapchainBooting = errors.New("swapchain resized or recreated, booting")
	ErrDeviceAllocation = errors.New("device allocation failed")
	ErrDeviceWrite      = errors.New("device memory write failed")
	ErrInvalidHandle    = errors.New("invalid device handle")
	ErrMissingComponent = errors.New("required component missing")
	ErrLevelLoad        = errors.New("level load failed")
	ErrAlreadyOwned     = errors.New("entity already owned by a collection")
)
