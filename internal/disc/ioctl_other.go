//go:build !linux

package disc

func openDevice(path string) (Device, error) {
	return nil, ErrUnsupported
}
