// SPDX-License-Identifier: MIT
package audio

import "fmt"

// Device describes a host audio device.
type Device struct {
	ID                int
	Name              string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
	LowInputLatency   float64 // ms
	HighInputLatency  float64 // ms
}

// Kind reports whether the device records, plays, or both.
func (d Device) Kind() string {
	switch {
	case d.MaxInputChannels > 0 && d.MaxOutputChannels > 0:
		return "Input/Output"
	case d.MaxInputChannels > 0:
		return "Input"
	case d.MaxOutputChannels > 0:
		return "Output"
	default:
		return ""
	}
}

// CanRecord reports whether the device has any input channels.
func (d Device) CanRecord() bool { return d.MaxInputChannels > 0 }

func (d Device) String() string {
	return fmt.Sprintf("[%d] %s (%s)", d.ID, d.Name, d.Kind())
}
