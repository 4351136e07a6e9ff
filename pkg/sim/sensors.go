package sim

import "math/rand/v2"

// LuxSensor is the illuminance cluster driven by a LuxWalk.
type LuxSensor interface {
	MeasuredLux() (float64, bool)
	SetMeasuredLux(lux float64) uint16
}

// LuxWalkConfig configures a LuxWalk.
type LuxWalkConfig struct {
	Sensor LuxSensor

	// Min and Max bound the walk in lux.
	Min, Max float64

	// Start is the first reading when the sensor has none.
	Start float64

	// Rand is the random source; nil seeds one from the runtime.
	Rand *rand.Rand
}

// LuxWalk moves an illuminance reading by up to 20 percent per tick.
type LuxWalk struct {
	cfg LuxWalkConfig
	rnd *rand.Rand
}

// NewLuxWalk creates a LuxWalk.
func NewLuxWalk(cfg LuxWalkConfig) *LuxWalk {
	if cfg.Min <= 0 {
		cfg.Min = 1
	}
	if cfg.Max <= cfg.Min {
		cfg.Max = cfg.Min * 1000
	}
	if cfg.Start < cfg.Min || cfg.Start > cfg.Max {
		cfg.Start = cfg.Min
	}
	rnd := cfg.Rand
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &LuxWalk{cfg: cfg, rnd: rnd}
}

// Tick implements Animation.
func (w *LuxWalk) Tick() {
	lux, ok := w.cfg.Sensor.MeasuredLux()
	if !ok || lux < w.cfg.Min || lux > w.cfg.Max {
		lux = w.cfg.Start
	} else {
		lux *= 1 + (w.rnd.Float64()*2-1)*0.2
	}
	lux = min(max(lux, w.cfg.Min), w.cfg.Max)
	w.cfg.Sensor.SetMeasuredLux(lux)
}

// Fan is the fan control cluster driven by a FanSpin.
type Fan interface {
	PercentSetting() *uint8
	PercentCurrent() uint8
	SetPercentCurrent(p uint8)
}

// AutoPercent is the speed a fan in Auto mode settles at.
const AutoPercent = 50

// spinStep is the largest PercentCurrent change per tick.
const spinStep = 20

// FanSpin ramps PercentCurrent towards PercentSetting, or towards
// AutoPercent while the fan is in Auto mode and has no setting.
type FanSpin struct {
	fan Fan
}

// NewFanSpin creates a FanSpin.
func NewFanSpin(fan Fan) *FanSpin {
	return &FanSpin{fan: fan}
}

// Tick implements Animation.
func (s *FanSpin) Tick() {
	target := uint8(AutoPercent)
	if p := s.fan.PercentSetting(); p != nil {
		target = *p
	}

	cur := s.fan.PercentCurrent()
	switch {
	case cur < target:
		s.fan.SetPercentCurrent(min(target, cur+min(spinStep, target-cur)))
	case cur > target:
		s.fan.SetPercentCurrent(cur - min(spinStep, cur-target))
	}
}
