package alarm

// Audio disable settings carried by OperatorCommands.DisableAudio.
const (
	audioEnabled  = 0
	audioDisabled = 1
	audioSilenced = 2
)

func declareVisual(b *builder) {
	r := notification + ".Visual"
	alarmed := func(f *frame) bool { return f.mem.CurrentAlarm > 0 }
	show := func(f *frame) { f.mem.Out.NotificationMessage = f.mem.CurrentAlarm }

	b.State(r, 0).Or().
		Default("AlarmDisplay", alarmed, nil).
		Default("OFF", nil, nil)
	b.State(r+".AlarmDisplay", 1).
		Entry(show).
		During(show).
		Exit(show).
		On(r+".OFF", func(f *frame) bool { return f.mem.CurrentAlarm == 0 }, nil).
		Self(alarmed, nil)
	b.State(r+".OFF", 2).
		Entry(func(f *frame) { f.mem.Out.NotificationMessage = 0 }).
		On(r+".AlarmDisplay", alarmed, nil)
}

func declareAudio(b *builder) {
	r := notification + ".Audio"
	setting := func(want int32) guard {
		return func(f *frame) bool { return f.in.Operator.DisableAudio == want }
	}
	disabled, silenced, enabled := setting(audioDisabled), setting(audioSilenced), setting(audioEnabled)
	// Only level 3 and 4 alarms sound.
	sound := func(f *frame) bool {
		return f.mem.Out.HighestLevelAlarm > 2 && f.in.Operator.DisableAudio == audioEnabled
	}
	mirror := func(f *frame) { f.mem.Out.IsAudioDisabled = f.in.Operator.DisableAudio }
	mute := func(f *frame) { f.mem.Out.AudioNotificationCommand = 0 }
	beep := func(f *frame) { f.mem.Out.AudioNotificationCommand = f.in.Device.AudioLevel }
	silence := func(f *frame) {
		mute(f)
		f.timer(timerAudio).Inc()
	}

	b.State(r, 0).Or().
		Entry(mirror).
		During(mirror).
		Exit(mirror).
		Default("Disabled", disabled, nil).
		Default("Silenced", silenced, nil).
		Default("ON", sound, nil).
		Default("OFF", nil, nil)
	b.State(r+".Disabled", 1).
		Entry(mute).
		During(mute).
		Exit(mute).
		On(r+".Silenced", silenced, nil).
		On(r+".ON", sound, nil).
		On(r+".OFF", enabled, nil)
	b.State(r+".OFF", 2).
		Entry(mute).
		During(mute).
		Exit(mute).
		On(r+".Disabled", disabled, nil).
		On(r+".Silenced", silenced, nil).
		On(r+".ON", sound, nil)
	b.State(r+".ON", 3).
		Entry(beep).
		Exit(beep).
		On(r+".Disabled", disabled, nil).
		On(r+".Silenced", silenced, nil).
		Self(sound, nil).
		On(r+".OFF", nil, nil)
	b.State(r+".Silenced", 4).
		Timers(timerAudio).
		Entry(silence).
		During(silence).
		Exit(mute).
		On(r+".Disabled", disabled, nil).
		On(r+".ON", sound, nil).
		On(r+".OFF", func(f *frame) bool {
			return f.timer(timerAudio).Exceeds(f.in.Device.AudioEnableDuration) || enabled(f)
		}, nil)
}
