// SPDX-License-Identifier: MIT
package spectrum

import "strconv"

var frequencyTickValues = []float64{20, 50, 100, 200, 500, 1000, 2000, 5000, 10000, 20000}

func frequencyTicks(plotWidth float64) []Tick {
	ticks := make([]Tick, len(frequencyTickValues))
	for i, f := range frequencyTickValues {
		ticks[i] = Tick{Value: f, Position: FrequencyToX(f, plotWidth), Label: FormatFrequency(f)}
	}
	return ticks
}

func amplitudeTicks(plotHeight float64) []Tick {
	var ticks []Tick
	for a := 0; a <= int(MaxAmplitude); a += 50 {
		ticks = append(ticks, Tick{
			Value:    float64(a),
			Position: AmplitudeToY(uint8(a), plotHeight),
			Label:    strconv.Itoa(a),
		})
	}
	return ticks
}

// FormatFrequency labels f in Hz, switching to "k" from 1 kHz.
func FormatFrequency(f float64) string {
	if f >= 1000 {
		return strconv.FormatFloat(f/1000, 'f', -1, 64) + "k"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
