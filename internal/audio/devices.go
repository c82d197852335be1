// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"io"

	"spectra/internal/config"

	"github.com/gordonklaus/portaudio"
)

// ErrInvalidDevice is returned for a device ID that does not exist or cannot
// play audio.
var ErrInvalidDevice = errors.New("invalid device ID")

// PortAudio entry points, replaced in tests.
var (
	paLibInitialize              = portaudio.Initialize
	paLibTerminate               = portaudio.Terminate
	paLibDevicesFunc             = portaudio.Devices
	paLibDefaultOutputDeviceFunc = portaudio.DefaultOutputDevice
	paDevicesFunc                = paDevices
)

// Initialize sets up the PortAudio subsystem.
// This must be called before any audio operations and paired with a Terminate() call.
func Initialize() error {
	if err := paLibInitialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return nil
}

// Terminate cleanly shuts down the PortAudio subsystem.
func Terminate() error {
	if err := paLibTerminate(); err != nil {
		return fmt.Errorf("failed to terminate PortAudio: %w", err)
	}
	return nil
}

// HostDevices returns every device PortAudio reports, indexed by ID.
func HostDevices() ([]Device, error) {
	infos, err := paDevicesFunc()
	if err != nil {
		return nil, err
	}
	devices := make([]Device, len(infos))
	for i, info := range infos {
		devices[i] = toDevice(i, info)
	}
	return devices, nil
}

// OutputDevices returns the devices that can play audio. IDs keep their
// host index.
func OutputDevices() ([]Device, error) {
	all, err := HostDevices()
	if err != nil {
		return nil, err
	}
	out := make([]Device, 0, len(all))
	for _, d := range all {
		if d.IsOutput() {
			out = append(out, d)
		}
	}
	return out, nil
}

// OutputDevice retrieves the output device for deviceID. config.MinDeviceID
// (-1) selects the system default.
func OutputDevice(deviceID int) (*portaudio.DeviceInfo, error) {
	devices, err := paDevicesFunc()
	if err != nil {
		return nil, err
	}

	if deviceID == config.MinDeviceID {
		device, err := paLibDefaultOutputDeviceFunc()
		if err != nil {
			return nil, fmt.Errorf("default output device: %w", err)
		}
		return device, nil
	}

	if deviceID < 0 || deviceID >= len(devices) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDevice, deviceID)
	}
	device := devices[deviceID]
	if device.MaxOutputChannels < 1 {
		return nil, fmt.Errorf("%w: %d (%s) does not support output", ErrInvalidDevice, deviceID, device.Name)
	}
	return device, nil
}

// ListDevices writes the output devices to w.
func ListDevices(w io.Writer) error {
	devices, err := OutputDevices()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "\nAvailable Output Devices\n\n")
	for _, d := range devices {
		fmt.Fprintf(w, "[%d] %s", d.ID, d.Name)
		if d.HostAPI != "" {
			fmt.Fprintf(w, " (%s)", d.HostAPI)
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "    Output channels: %d\n", d.MaxOutputChannels)
		fmt.Fprintf(w, "    Default sample rate: %.0f Hz\n", d.DefaultSampleRate)
		fmt.Fprintf(w, "    Latency: Low=%.2fms, High=%.2fms\n\n",
			d.LowLatency.Seconds()*1000,
			d.HighLatency.Seconds()*1000)
	}
	return nil
}

// paDevices never returns a nil slice without an error.
func paDevices() ([]*portaudio.DeviceInfo, error) {
	devices, err := paLibDevicesFunc()
	if err != nil {
		return nil, err
	}
	if devices == nil {
		devices = []*portaudio.DeviceInfo{}
	}
	return devices, nil
}
