package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/comalice/pumpchart/internal/bus"
	"github.com/comalice/pumpchart/internal/logger"
)

// Scenario describes one simulated run of the pump.
type Scenario struct {
	// Name labels the run in logs and trace output.
	Name string `yaml:"name"`
	// Ticks is the number of control cycles to run.
	Ticks uint64 `yaml:"ticks"`
	// TickRate is the wall-clock period of a cycle in timed mode.
	TickRate time.Duration `yaml:"tick_rate"`
	// LogLevel is one of debug, info, warn, error, fatal.
	LogLevel string `yaml:"log_level"`
	// Snapshot controls where and how chart memory is persisted.
	Snapshot Snapshot `yaml:"snapshot"`
	// Base is the stimulus in effect before any patch applies.
	Base bus.Stimulus `yaml:"base"`
	// Patches change stimulus signals from their tick onward.
	Patches []Patch `yaml:"patches"`
	// Watch lists extra expressions, "signal op value", that must hold
	// after every cycle.
	Watch []string `yaml:"watch,omitempty"`
}

// Snapshot configures persistence of chart memory after a run.
type Snapshot struct {
	// Dir is the output directory. Empty disables snapshots.
	Dir string `yaml:"dir"`
	// Format is json, yaml or proto.
	Format string `yaml:"format"`
}

const (
	// DefaultScenarioFilename is the scenario file used when none is given.
	DefaultScenarioFilename = "pumpchart-scenario.yaml"

	// DefaultTicks matches the five-cycle acceptance harness.
	DefaultTicks = 5

	// DefaultTickRate is the cycle period in timed mode.
	DefaultTickRate = 100 * time.Millisecond

	// DefaultLogLevel is used when the scenario names none.
	DefaultLogLevel = "info"

	// DefaultSnapshotFormat is used when the scenario names none.
	DefaultSnapshotFormat = "json"

	// DefaultFilePermissions is the permission for saved scenario files.
	DefaultFilePermissions = 0o600

	// MinSignal and MaxSignal bound every integer stimulus signal.
	MinSignal = 0
	MaxSignal = 255
)

// SnapshotFormats lists the accepted snapshot formats.
var SnapshotFormats = []string{"json", "yaml", "proto"}

var (
	// ErrOutOfRange is returned when an integer signal leaves 0..255.
	ErrOutOfRange = errors.New("signal out of range")
	// ErrUnknownSignal is returned when a patch names a signal the stimulus lacks.
	ErrUnknownSignal = errors.New("unknown signal")
	// ErrPatchOutOfRange is returned when a patch is scheduled after the last tick.
	ErrPatchOutOfRange = errors.New("patch scheduled after last tick")

	// errConfigIsNotSet is returned when a nil scenario is provided.
	errConfigIsNotSet = errors.New("scenario is not set")
	// errUnknownLogLevel is returned for an unrecognized log level.
	errUnknownLogLevel = errors.New("unknown log level")
	// errUnknownFormat is returned for an unrecognized snapshot format.
	errUnknownFormat = errors.New("unknown snapshot format")
	// errEmptyPatch is returned when a patch sets nothing.
	errEmptyPatch = errors.New("patch sets no signals")
)

// Load reads a scenario from path and validates it.
func Load(path string) (*Scenario, error) {
	if path == "" {
		path = DefaultScenarioFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var sc Scenario
	if err := yaml.Unmarshal(contents, &sc); err != nil {
		return nil, fmt.Errorf("unmarshal scenario: %w", err)
	}

	if err := Validate(&sc); err != nil {
		return nil, err
	}

	return &sc, nil
}

// Save validates sc and writes it to path.
func Save(path string, sc *Scenario) error {
	if sc == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultScenarioFilename
	}

	if err := Validate(sc); err != nil {
		return err
	}

	data, err := yaml.Marshal(sc)
	if err != nil {
		return fmt.Errorf("marshal scenario: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write scenario: %w", err)
	}

	return nil
}

// Validate fills defaults and checks the scenario. A scenario that fails
// the bounds check must not be run.
func Validate(sc *Scenario) error {
	if sc == nil {
		return errConfigIsNotSet
	}

	if sc.Ticks == 0 {
		sc.Ticks = DefaultTicks
	}

	if sc.TickRate <= 0 {
		sc.TickRate = DefaultTickRate
	}

	if sc.LogLevel == "" {
		sc.LogLevel = DefaultLogLevel
	}

	if _, ok := logger.ParseLogLevel(sc.LogLevel); !ok {
		return fmt.Errorf("%w: %q", errUnknownLogLevel, sc.LogLevel)
	}

	if sc.Snapshot.Format == "" {
		sc.Snapshot.Format = DefaultSnapshotFormat
	}

	if !slices.Contains(SnapshotFormats, sc.Snapshot.Format) {
		return fmt.Errorf("%w: %q", errUnknownFormat, sc.Snapshot.Format)
	}

	for i, p := range sc.Patches {
		if p.At >= sc.Ticks {
			return fmt.Errorf("patch %d: %w: tick %d of %d", i, ErrPatchOutOfRange, p.At, sc.Ticks)
		}

		if len(p.Set) == 0 {
			return fmt.Errorf("patch %d: %w", i, errEmptyPatch)
		}
	}

	return checkTimeline(sc)
}

// checkTimeline bounds-checks the base stimulus and the stimulus after
// every tick that has patches.
func checkTimeline(sc *Scenario) error {
	if err := CheckBounds(&sc.Base); err != nil {
		return fmt.Errorf("base stimulus: %w", err)
	}

	patches := slices.Clone(sc.Patches)
	SortPatches(patches)

	current := sc.Base
	for start := 0; start < len(patches); {
		end := start
		for end < len(patches) && patches[end].At == patches[start].At {
			end++
		}

		at := patches[start].At
		if err := ApplyTick(&current, patches[start:end]); err != nil {
			return fmt.Errorf("tick %d: %w", at, err)
		}

		if err := CheckBounds(&current); err != nil {
			return fmt.Errorf("tick %d: %w", at, err)
		}

		start = end
	}

	return nil
}

// Default returns a validated scenario that starts a basal infusion, pauses
// it from the operator panel and resumes it.
func Default() *Scenario {
	sc := &Scenario{
		Name:  "basal",
		Ticks: 40,
		Base: bus.Stimulus{
			TopLevel: bus.TopLevelMode{SystemOn: true},
			Operator: bus.OperatorCommands{InfusionInitiate: true},
			DrugDatabase: bus.DrugDatabase{
				KnownPrescription: true,
				FlowRateHigh:      100,
				VTBIHigh:          250,
			},
			Device: bus.DeviceConfiguration{
				AudioEnableDuration:      10,
				AudioLevel:               5,
				LowReservoir:             10,
				MaxDurationOverInfusion:  5,
				MaxDurationUnderInfusion: 5,
				MaxPausedDuration:        20,
				MaxIdleDuration:          30,
				ToleranceMax:             10,
				ToleranceMin:             10,
			},
			Status: bus.SystemStatus{InTherapy: true, ReservoirVolume: 200},
			Config: bus.ConfigOutputs{
				Configured:                1,
				InfusionTotalDuration:     60,
				VTBITotal:                 200,
				FlowRateBasal:             10,
				FlowRateKVO:               1,
				FlowRateIntermittentBolus: 30,
				DurationIntermittentBolus: 3,
				IntervalIntermittentBolus: 15,
				FlowRatePatientBolus:      50,
				DurationPatientBolus:      3,
				LockoutPeriodPatientBolus: 5,
				MaxNumberOfPatientBolus:   2,
			},
		},
		Patches: []Patch{
			{At: 20, Set: map[string]any{"operator.infusionInitiate": false, "operator.infusionInhibit": true}},
			{At: 25, Set: map[string]any{"operator.infusionInhibit": false, "operator.infusionInitiate": true}},
		},
		Watch: []string{"infusion.currentSystemMode != 5"},
	}

	if err := Validate(sc); err != nil {
		panic(fmt.Sprintf("default scenario: %v", err))
	}

	return sc
}
