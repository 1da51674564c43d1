package minepump

import "fmt"

// WaterLevel is the sump water level.
type WaterLevel int

const (
	Low WaterLevel = iota
	Normal
	High
)

func (w WaterLevel) String() string {
	switch w {
	case Low:
		return "low"
	case Normal:
		return "normal"
	case High:
		return "high"
	}
	return fmt.Sprintf("WaterLevel(%d)", int(w))
}

// Environment is the mine shaft the pump drains.
type Environment struct {
	Water           WaterLevel `json:"water" yaml:"water"`
	MethaneCritical bool       `json:"methaneCritical" yaml:"methaneCritical"`
}

// Rise raises the water one level, saturating at High.
func (e *Environment) Rise() {
	if e.Water < High {
		e.Water++
	}
}

// Lower drops the water one level, saturating at Low.
func (e *Environment) Lower() {
	if e.Water > Low {
		e.Water--
	}
}

// ToggleMethane flips the methane reading.
func (e *Environment) ToggleMethane() {
	e.MethaneCritical = !e.MethaneCritical
}

// HighWaterSensorDry reports whether the water is below the high sensor.
func (e *Environment) HighWaterSensorDry() bool {
	return e.Water != High
}

// LowWaterSensorDry reports whether the water is below the low sensor.
func (e *Environment) LowWaterSensorDry() bool {
	return e.Water == Low
}

func (e *Environment) String() string {
	meth := "OK"
	if e.MethaneCritical {
		meth = "CRIT"
	}
	return fmt.Sprintf("Env(Water:%s,Meth:%s)", e.Water, meth)
}
