package infusion

import "github.com/comalice/pumpchart"

// declareActive adds ACTIVE: basal delivery, the patient bolus and
// intermittent bolus machines, and the arbiter choosing which one drives
// the pump. Patient bolus beats intermittent bolus beats basal.
func declareActive(b *builder) {
	b.State(active, 1).And().
		On(paused, func(f *frame) bool {
			return f.in.Operator.InfusionInhibit || f.alarmLevel() >= 3
		}, nil)

	declareBasal(b)
	declarePatientBolus(b)
	declareIntermittentBolus(b)
	declareActiveArbiter(b)
}

func declareBasal(b *builder) {
	r := active + ".Basal"
	b.State(r, 0).Or().
		Default("ON", nil, nil)
	b.State(r+".OFF", 1).
		On(r+".ON", func(f *frame) bool { return f.in.Operator.InfusionInitiate }, nil)
	b.State(r+".ON", 2).
		On(r+".OFF", func(f *frame) bool {
			return f.mem.Out.ActualInfusionDuration >= f.in.Config.InfusionTotalDuration-1
		}, nil)
}

func declarePatientBolus(b *builder) {
	r := active + ".Patient"
	lock := func(f *frame) { f.timer(timerLockout).Inc() }
	deliver := func(f *frame) { f.timer(timerPatientBolus).Inc() }

	b.State(r, 0).Or().
		Default("LOCKOUT", func(f *frame) bool { return f.mem.InPatientBolus }, nil).
		Default("OFF", nil, nil)
	b.State(r+".LOCKOUT", 1).
		Entry(lock).
		During(lock).
		On(r+".OFF", func(f *frame) bool {
			return f.timer(timerLockout).AtLeast(f.in.Config.LockoutPeriodPatientBolus - 1)
		}, nil)
	b.State(r+".OFF", 2).
		Entry(func(f *frame) {
			f.timer(timerPatientBolus).Reset()
			f.mem.InPatientBolus = false
		}).
		On(r+".ON", func(f *frame) bool {
			return f.in.Patient.PatientBolusRequest && f.alarmLevel() < 2 &&
				f.mem.NumberPbolus < f.in.Config.MaxNumberOfPatientBolus
		}, nil)
	b.State(r+".ON", 3).
		Entry(func(f *frame) {
			f.mem.NumberPbolus++
			f.mem.InPatientBolus = true
			deliver(f)
		}).
		During(deliver).
		Exit(deliver).
		On(r+".LOCKOUT", func(f *frame) bool {
			return f.timer(timerPatientBolus).AtLeast(f.in.Config.DurationPatientBolus-1) || f.alarmLevel() == 2
		}, func(f *frame) { f.timer(timerLockout).Reset() })
}

func declareIntermittentBolus(b *builder) {
	r := active + ".Intermittent"
	tick := func(f *frame) { f.timer(timerSquareBolusInterval).Inc() }

	b.State(r, 0).Or().
		Entry(tick).
		During(tick).
		Default("OFF", nil, nil)
	b.State(r+".OFF", 1).
		Entry(func(f *frame) {
			f.timer(timerSquareBolus).Reset()
			f.mem.SbolusReq = f.squareBolusDue()
		}).
		During(func(f *frame) { f.mem.SbolusReq = f.squareBolusDue() }).
		On(r+".ON", func(f *frame) bool { return f.mem.SbolusReq && f.alarmLevel() < 2 }, nil)
	b.State(r+".ON", 2).
		During(func(f *frame) {
			f.timer(timerSquareBolus).Inc()
			f.mem.SbolusReq = false
		}).
		Exit(func(f *frame) {
			f.timer(timerSquareBolus).Inc()
			f.mem.SbolusReq = false
		}).
		On(r+".OFF", func(f *frame) bool {
			return f.timer(timerSquareBolus).AtLeast(f.in.Config.DurationIntermittentBolus-1) || f.alarmLevel() == 2
		}, nil)
}

func declareActiveArbiter(b *builder) {
	r := active + ".Arbiter"
	patient := func(f *frame) bool { return f.chart.active(patientOn, f) }
	intermittent := func(f *frame) bool { return f.chart.active(intermittentOn, f) }
	elapse := func(f *frame) { f.mem.Out.ActualInfusionDuration++ }

	b.State(r, 0).Or().
		Default("Patient_Bolus", patient, nil).
		Default("Intermittent_Bolus", intermittent, nil).
		Default("Basal", nil, nil)

	leaves := []struct {
		name string
		tag  pumpchart.Tag
		run  func(*frame)
	}{
		{"Basal", 1, func(f *frame) { f.command(f.in.Config.FlowRateBasal, ModeBasal) }},
		{"Intermittent_Bolus", 2, func(f *frame) {
			f.command(f.in.Config.FlowRateIntermittentBolus, ModeIntermittentBolus)
		}},
		{"Patient_Bolus", 3, func(f *frame) { f.command(f.in.Config.FlowRatePatientBolus, ModePatientBolus) }},
	}
	// Every tick re-arbitrates and counts one tick of delivery.
	for _, l := range leaves {
		b.State(r+"."+l.name, l.tag).
			Entry(l.run).
			On(r+".Patient_Bolus", patient, elapse).
			On(r+".Intermittent_Bolus", intermittent, elapse).
			On(r+".Basal", nil, elapse)
	}
}
