package disc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DriveStatus represents the result of a drive status query.
type DriveStatus int

const (
	DriveStatusNoInfo   DriveStatus = 0
	DriveStatusNoDisc   DriveStatus = 1
	DriveStatusTrayOpen DriveStatus = 2
	DriveStatusNotReady DriveStatus = 3
	DriveStatusDiscOK   DriveStatus = 4
)

// String returns a human-readable label for the drive status.
func (s DriveStatus) String() string {
	switch s {
	case DriveStatusNoInfo:
		return "no_info"
	case DriveStatusNoDisc:
		return "no_disc"
	case DriveStatusTrayOpen:
		return "tray_open"
	case DriveStatusNotReady:
		return "not_ready"
	case DriveStatusDiscOK:
		return "disc_ok"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// NormalizeDevicePath accepts "/dev/sr0", "dev:/dev/sr0" or a bare kernel
// name such as "sr0" and returns the device node path.
func NormalizeDevicePath(device string) string {
	trimmed := strings.TrimSpace(device)
	switch {
	case trimmed == "":
		return ""
	case strings.HasPrefix(trimmed, "dev:"):
		return strings.TrimPrefix(trimmed, "dev:")
	case strings.HasPrefix(trimmed, "/"):
		return trimmed
	default:
		return "/dev/" + trimmed
	}
}

// CheckDriveStatus opens devicePath just long enough to query the drive
// state of its current slot.
func CheckDriveStatus(devicePath string) (DriveStatus, error) {
	return checkDriveStatus(openDevice, devicePath)
}

func checkDriveStatus(open Opener, devicePath string) (DriveStatus, error) {
	devicePath = NormalizeDevicePath(devicePath)
	if devicePath == "" {
		return DriveStatusNoInfo, errors.New("empty device path")
	}

	dev, err := open(devicePath)
	if err != nil {
		return DriveStatusNoInfo, &OpenError{Path: devicePath, Err: err}
	}
	defer dev.Close() //nolint:errcheck

	status, err := dev.DriveStatus()
	if err != nil {
		return DriveStatusNoInfo, fmt.Errorf("drive status on %s: %w", devicePath, err)
	}
	return status, nil
}

// WaitForReady polls the drive up to 60 times at 1-second intervals until
// it reports DriveStatusDiscOK or the context is cancelled.
func WaitForReady(ctx context.Context, devicePath string) (DriveStatus, error) {
	return waitForReady(ctx, openDevice, devicePath, time.Second)
}

func waitForReady(ctx context.Context, open Opener, devicePath string, pollInterval time.Duration) (DriveStatus, error) {
	const maxPolls = 60

	var lastStatus DriveStatus
	for i := 0; i < maxPolls; i++ {
		status, err := checkDriveStatus(open, devicePath)
		if err != nil {
			return status, err
		}
		lastStatus = status
		if status == DriveStatusDiscOK {
			return status, nil
		}

		select {
		case <-ctx.Done():
			return lastStatus, ctx.Err()
		case <-time.After(pollInterval):
		}
	}

	return lastStatus, fmt.Errorf("drive %s not ready after %d polls (last status: %s)", devicePath, maxPolls, lastStatus)
}
