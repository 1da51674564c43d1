package alarm

import (
	"github.com/comalice/pumpchart"
	"github.com/comalice/pumpchart/internal/bus"
)

// declareCondition adds the state machine that watches cond.
func declareCondition(b *builder, cond Condition) {
	switch cond {
	case OverInfusionFlowRate:
		flowRate(b, cond, timerOverInfusion, (*frame).overInfusion,
			func(f *frame) int32 { return f.in.Device.MaxDurationOverInfusion },
			func(f *frame) bool { return f.overInfusion() != flowAlarm && f.cancelled(cond) })
	case UnderInfusion:
		flowRate(b, cond, timerUnderInfusion, (*frame).underInfusion,
			func(f *frame) int32 { return f.in.Device.MaxDurationUnderInfusion },
			func(f *frame) bool { return f.cancelled(cond) })
	case IdleTimeExceeded:
		timed(b, cond, timerIdle,
			func(f *frame) bool { return f.in.InfusionManager.CurrentSystemMode == 1 },
			func(f *frame) int32 { return f.in.Device.MaxIdleDuration })
	case PausedTimeExceeded:
		timed(b, cond, timerPaused,
			func(f *frame) bool {
				mode := f.in.InfusionManager.CurrentSystemMode
				return mode == 6 || mode == 7 || mode == 8
			},
			func(f *frame) int32 { return f.in.Device.MaxPausedDuration })
	default:
		l := latchFor(cond)
		twoState(b, cond, l.raise, l.clear)
	}
}

// latch is a two-state condition: raised while No, cleared while Yes.
type latch struct {
	raise guard
	clear guard
}

func acknowledged(code Condition, still guard) guard {
	return func(f *frame) bool { return f.cancelled(code) && !still(f) }
}

func sensor(get func(*bus.DeviceSensors) bool) guard {
	return func(f *frame) bool { return get(&f.in.Sensors) }
}

func sensorLatch(cond Condition, get func(*bus.DeviceSensors) bool) latch {
	return latch{raise: sensor(get), clear: acknowledged(cond, sensor(get))}
}

func latchFor(cond Condition) latch {
	switch cond {
	case EmptyReservoir:
		empty := func(f *frame) bool { return f.in.Status.ReservoirEmpty }
		return latch{
			raise: func(f *frame) bool { return f.inTherapy() && empty(f) },
			clear: acknowledged(cond, empty),
		}
	// Hardware and environmental errors are acknowledged with each
	// other's code.
	case HardwareError:
		return latch{
			raise: (*frame).hardwareFault,
			clear: acknowledged(EnvironmentalError, (*frame).hardwareFault),
		}
	case EnvironmentalError:
		return latch{
			raise: (*frame).environmentalFault,
			clear: acknowledged(HardwareError, (*frame).environmentalFault),
		}
	case OverInfusionVTBI:
		over := func(f *frame) bool {
			return f.inTherapy() && f.in.Status.VolumeInfused > f.in.DrugDatabase.VTBIHigh
		}
		return latch{raise: over, clear: acknowledged(cond, over)}
	case AirInLine:
		return sensorLatch(cond, func(s *bus.DeviceSensors) bool { return s.AirInLine })
	case Occlusion:
		return sensorLatch(cond, func(s *bus.DeviceSensors) bool { return s.Occlusion })
	case DoorOpen:
		return sensorLatch(cond, func(s *bus.DeviceSensors) bool { return s.DoorOpen })
	case LowReservoir:
		low := func(f *frame) bool { return f.in.Status.ReservoirVolume < f.in.Device.LowReservoir }
		return latch{
			raise: func(f *frame) bool { return f.inTherapy() && low(f) },
			clear: acknowledged(cond, low),
		}
	case InfusionNotStarted:
		// Clears by itself once the start request goes away.
		waiting := func(f *frame) bool {
			return f.in.Operator.InfusionInitiate && !f.in.Status.ReservoirEmpty
		}
		return latch{raise: waiting, clear: pumpchart.Not(waiting)}
	case FlowRateNotStable:
		unstable := func(f *frame) bool { return f.in.Sensors.FlowRateNotStable }
		return latch{
			raise: func(f *frame) bool { return f.inTherapy() && unstable(f) },
			clear: acknowledged(cond, unstable),
		}
	case ConfigTimeWarning:
		late := func(f *frame) bool { return f.in.Config.ConfigTimer > f.in.Device.ConfigWarningDuration }
		return latch{raise: late, clear: acknowledged(cond, late)}
	case BatteryError:
		return latch{raise: (*frame).batteryFault, clear: acknowledged(cond, (*frame).batteryFault)}
	case PumpHot:
		return sensorLatch(cond, func(s *bus.DeviceSensors) bool { return s.PumpOverheated })
	case LoggingFailed:
		failed := func(f *frame) bool { return f.in.Logging.LoggingFailed }
		return latch{raise: failed, clear: acknowledged(cond, failed)}
	case SystemMonitorFailed:
		failed := func(f *frame) bool { return f.in.SystemMonitor.SystemMonitorFailed }
		return latch{raise: failed, clear: acknowledged(cond, failed)}
	}
	panic("alarm: no latch for " + cond.String())
}

// twoState declares {No, Yes}: No raises to Yes, Yes clears back to No.
func twoState(b *builder, cond Condition, raise, clear guard) {
	r := cond.Region()
	b.State(r, 0).Or().
		Default("Yes", raise, nil).
		Default("No", nil, nil)
	b.State(r+".No", tagNo).
		On(r+".Yes", raise, nil)
	b.State(r+".Yes", tagYes).
		On(r+".No", clear, nil)
}

// flowRate declares {Check, Monitor, Yes}. A deviation beyond the minimum
// tolerance is monitored; it raises once it reaches the maximum tolerance
// or persists past maxDuration ticks.
func flowRate(b *builder, cond Condition, timer pumpchart.TimerID,
	check func(*frame) flowDeviation, maxDuration func(*frame) int32, clear guard) {
	r := cond.Region()
	is := func(d flowDeviation) guard {
		return func(f *frame) bool { return check(f) == d }
	}

	b.State(r, 0).Or().
		Default("Yes", is(flowAlarm), nil).
		Default("Monitor", is(flowDeviates), nil).
		Default("Check", nil, nil)
	b.State(r+".Check", tagCheck).
		On(r+".Yes", is(flowAlarm), nil).
		On(r+".Monitor", is(flowDeviates), nil)
	b.State(r+".Monitor", tagMonitor).
		Timers(timer).
		Exit(func(f *frame) { f.timer(timer).Reset() }).
		During(func(f *frame) { f.timer(timer).Inc() }).
		On(r+".Yes", func(f *frame) bool {
			return check(f) == flowAlarm || f.timer(timer).Exceeds(maxDuration(f))
		}, nil).
		On(r+".Check", is(flowNominal), nil)
	b.State(r+".Yes", tagRaised).
		On(r+".Check", clear, nil)
}

// timed declares {No, Yes, Counting} for a condition raised after the pump
// has stayed in a mode for maxDuration ticks.
func timed(b *builder, cond Condition, timer pumpchart.TimerID, inMode guard, maxDuration func(*frame) int32) {
	r := cond.Region()
	immediate := func(f *frame) bool { return inMode(f) && maxDuration(f) == 1 }
	reset := func(f *frame) { f.timer(timer).Reset() }
	count := func(f *frame) { f.timer(timer).Inc() }

	b.State(r, 0).Or().
		Default("Yes", immediate, nil).
		Default("Counting", inMode, nil).
		Default("No", nil, nil)
	b.State(r+".No", tagNo).
		Entry(reset).
		During(reset).
		Exit(reset).
		On(r+".Yes", immediate, nil).
		On(r+".Counting", inMode, nil)
	b.State(r+".Yes", tagYes).
		On(r+".No", func(f *frame) bool { return f.cancelled(cond) }, nil)
	b.State(r+".Counting", tagCounting).
		Timers(timer).
		Entry(count).
		During(count).
		Exit(count).
		On(r+".Yes", func(f *frame) bool { return f.timer(timer).AtLeast(maxDuration(f)) }, nil)
}
