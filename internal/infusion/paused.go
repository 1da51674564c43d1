package infusion

import "github.com/comalice/pumpchart"

// declarePaused adds PAUSED: why the pump is paused, and the arbiter
// choosing between keep-vein-open flow and a full stop. A level 4 alarm
// stops the pump; a level 3 alarm or a manual pause keeps the vein open.
func declarePaused(b *builder) {
	b.State(paused, 2).And().
		On(active, func(f *frame) bool {
			return f.in.Operator.InfusionInitiate && f.alarmLevel() < 3 && !f.in.Operator.InfusionInhibit
		}, nil)

	alarmed := func(f *frame) bool { return f.alarmLevel() >= 3 }
	r := paused + ".Alarm_Paused"
	b.State(r, 0).Or().
		Default("ON", alarmed, nil).
		Default("OFF", nil, nil)
	b.State(r+".OFF", 1).
		On(r+".ON", alarmed, nil)
	b.State(r+".ON", 2).
		On(r+".OFF", func(f *frame) bool { return f.in.Operator.InfusionInitiate && f.alarmLevel() < 3 }, nil)

	inhibited := func(f *frame) bool { return f.in.Operator.InfusionInhibit }
	r = paused + ".Manual_Paused"
	b.State(r, 0).Or().
		Default("ON", inhibited, nil).
		Default("OFF", nil, nil)
	b.State(r+".OFF", 1).
		On(r+".ON", inhibited, nil)
	b.State(r+".ON", 2).
		On(r+".OFF", func(f *frame) bool {
			return f.in.Operator.InfusionInitiate && !f.in.Operator.InfusionInhibit
		}, nil)

	declarePausedArbiter(b)
}

func declarePausedArbiter(b *builder) {
	r := paused + ".Arbiter"
	level := func(want int32) guard {
		return func(f *frame) bool { return f.chart.active(alarmPausedOn, f) && f.alarmLevel() == want }
	}
	stop, kvo := level(4), level(3)

	manual := func(f *frame) { f.command(f.in.Config.FlowRateKVO, ModeManualPausedKVO) }
	alarmKVO := func(f *frame) { f.command(f.in.Config.FlowRateKVO, ModePausedKVO) }
	noKVO := func(f *frame) { f.command(0, ModePausedNoKVO) }

	b.State(r, 0).Or().
		Default("Paused_NoKVO", stop, nil).
		Default("Paused_KVO", kvo, nil).
		Default("Manual_Paused_KVO", nil, nil)

	for _, l := range []struct {
		name   string
		tag    pumpchart.Tag
		output func(*frame)
	}{
		{"Manual_Paused_KVO", 1, manual},
		{"Paused_KVO", 2, alarmKVO},
		{"Paused_NoKVO", 3, noKVO},
	} {
		b.State(r+"."+l.name, l.tag).
			Entry(l.output).
			Exit(l.output).
			On(r+".Paused_NoKVO", stop, nil).
			On(r+".Paused_KVO", kvo, nil).
			On(r+".Manual_Paused_KVO", nil, nil)
	}
}
