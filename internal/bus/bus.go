// Package bus defines the flat records exchanged between the pump
// subsystems once per control cycle. Integer signals are int32; the
// scenario layer keeps configuration constants within 0..255.
package bus

// TopLevelMode is published by the top-level mode controller.
type TopLevelMode struct {
	SystemOn           bool  `json:"systemOn" yaml:"systemOn"`
	RequestConfirmStop bool  `json:"requestConfirmStop" yaml:"requestConfirmStop"`
	LogMessageID       int32 `json:"logMessageId" yaml:"logMessageId"`
}

// OperatorCommands are the operator's key presses for this cycle.
type OperatorCommands struct {
	SystemStart        bool  `json:"systemStart" yaml:"systemStart"`
	SystemStop         bool  `json:"systemStop" yaml:"systemStop"`
	InfusionInitiate   bool  `json:"infusionInitiate" yaml:"infusionInitiate"`
	InfusionInhibit    bool  `json:"infusionInhibit" yaml:"infusionInhibit"`
	InfusionCancel     bool  `json:"infusionCancel" yaml:"infusionCancel"`
	DataConfig         bool  `json:"dataConfig" yaml:"dataConfig"`
	Next               bool  `json:"next" yaml:"next"`
	Back               bool  `json:"back" yaml:"back"`
	Cancel             bool  `json:"cancel" yaml:"cancel"`
	Keyboard           bool  `json:"keyboard" yaml:"keyboard"`
	NotificationCancel bool  `json:"notificationCancel" yaml:"notificationCancel"`
	ConfirmStop        bool  `json:"confirmStop" yaml:"confirmStop"`
	DisableAudio       int32 `json:"disableAudio" yaml:"disableAudio"`
	ConfigurationType  int32 `json:"configurationType" yaml:"configurationType"`
}

// PatientInputs carries the patient's bolus button.
type PatientInputs struct {
	PatientBolusRequest bool `json:"patientBolusRequest" yaml:"patientBolusRequest"`
}

// SystemMonitor reports the self-test monitor.
type SystemMonitor struct {
	SystemMonitorFailed bool `json:"systemMonitorFailed" yaml:"systemMonitorFailed"`
}

// LogOutput reports the event logger.
type LogOutput struct {
	Log           int32 `json:"log" yaml:"log"`
	LoggingFailed bool  `json:"loggingFailed" yaml:"loggingFailed"`
}

// DrugDatabase holds the prescription limits for the loaded drug.
type DrugDatabase struct {
	KnownPrescription     bool  `json:"knownPrescription" yaml:"knownPrescription"`
	DrugName              int32 `json:"drugName" yaml:"drugName"`
	DrugConcentrationHigh int32 `json:"drugConcentrationHigh" yaml:"drugConcentrationHigh"`
	DrugConcentrationLow  int32 `json:"drugConcentrationLow" yaml:"drugConcentrationLow"`
	VTBIHigh              int32 `json:"vtbiHigh" yaml:"vtbiHigh"`
	VTBILow               int32 `json:"vtbiLow" yaml:"vtbiLow"`
	IntervalPatientBolus  int32 `json:"intervalPatientBolus" yaml:"intervalPatientBolus"`
	NumberMaxPatientBolus int32 `json:"numberMaxPatientBolus" yaml:"numberMaxPatientBolus"`
	FlowRateKVO           int32 `json:"flowRateKvo" yaml:"flowRateKvo"`
	FlowRateHigh          int32 `json:"flowRateHigh" yaml:"flowRateHigh"`
	FlowRateLow           int32 `json:"flowRateLow" yaml:"flowRateLow"`
}

// DeviceSensors are the raw hardware readings.
type DeviceSensors struct {
	FlowRate              int32 `json:"flowRate" yaml:"flowRate"`
	FlowRateNotStable     bool  `json:"flowRateNotStable" yaml:"flowRateNotStable"`
	AirInLine             bool  `json:"airInLine" yaml:"airInLine"`
	Occlusion             bool  `json:"occlusion" yaml:"occlusion"`
	DoorOpen              bool  `json:"doorOpen" yaml:"doorOpen"`
	Temp                  bool  `json:"temp" yaml:"temp"`
	AirPressure           bool  `json:"airPressure" yaml:"airPressure"`
	Humidity              bool  `json:"humidity" yaml:"humidity"`
	BatteryDepleted       bool  `json:"batteryDepleted" yaml:"batteryDepleted"`
	BatteryLow            bool  `json:"batteryLow" yaml:"batteryLow"`
	BatteryUnableToCharge bool  `json:"batteryUnableToCharge" yaml:"batteryUnableToCharge"`
	SupplyVoltage         bool  `json:"supplyVoltage" yaml:"supplyVoltage"`
	CPUInError            bool  `json:"cpuInError" yaml:"cpuInError"`
	RTCInError            bool  `json:"rtcInError" yaml:"rtcInError"`
	WatchdogInterrupted   bool  `json:"watchdogInterrupted" yaml:"watchdogInterrupted"`
	MemoryCorrupted       bool  `json:"memoryCorrupted" yaml:"memoryCorrupted"`
	PumpTooHot            bool  `json:"pumpTooHot" yaml:"pumpTooHot"`
	PumpOverheated        bool  `json:"pumpOverheated" yaml:"pumpOverheated"`
	PumpPrimed            bool  `json:"pumpPrimed" yaml:"pumpPrimed"`
	PostSuccessful        bool  `json:"postSuccessful" yaml:"postSuccessful"`
}

// DeviceConfiguration holds the device constants. Durations are in ticks.
type DeviceConfiguration struct {
	AudioEnableDuration      int32 `json:"audioEnableDuration" yaml:"audioEnableDuration"`
	AudioLevel               int32 `json:"audioLevel" yaml:"audioLevel"`
	ConfigWarningDuration    int32 `json:"configWarningDuration" yaml:"configWarningDuration"`
	EmptyReservoir           int32 `json:"emptyReservoir" yaml:"emptyReservoir"`
	LowReservoir             int32 `json:"lowReservoir" yaml:"lowReservoir"`
	MaxConfigDuration        int32 `json:"maxConfigDuration" yaml:"maxConfigDuration"`
	MaxDurationOverInfusion  int32 `json:"maxDurationOverInfusion" yaml:"maxDurationOverInfusion"`
	MaxDurationUnderInfusion int32 `json:"maxDurationUnderInfusion" yaml:"maxDurationUnderInfusion"`
	MaxPausedDuration        int32 `json:"maxPausedDuration" yaml:"maxPausedDuration"`
	MaxIdleDuration          int32 `json:"maxIdleDuration" yaml:"maxIdleDuration"`
	ToleranceMax             int32 `json:"toleranceMax" yaml:"toleranceMax"`
	ToleranceMin             int32 `json:"toleranceMin" yaml:"toleranceMin"`
	LogInterval              int32 `json:"logInterval" yaml:"logInterval"`
	SystemTestInterval       int32 `json:"systemTestInterval" yaml:"systemTestInterval"`
	MaxDisplayDuration       int32 `json:"maxDisplayDuration" yaml:"maxDisplayDuration"`
	MaxConfirmStopDuration   int32 `json:"maxConfirmStopDuration" yaml:"maxConfirmStopDuration"`
}

// SystemStatus is published by the fluid delivery monitor.
type SystemStatus struct {
	ReservoirEmpty  bool  `json:"reservoirEmpty" yaml:"reservoirEmpty"`
	InTherapy       bool  `json:"inTherapy" yaml:"inTherapy"`
	ReservoirVolume int32 `json:"reservoirVolume" yaml:"reservoirVolume"`
	VolumeInfused   int32 `json:"volumeInfused" yaml:"volumeInfused"`
	LogMessageID    int32 `json:"logMessageId" yaml:"logMessageId"`
}

// ConfigOutputs is the confirmed infusion program.
type ConfigOutputs struct {
	PatientID                      int32 `json:"patientId" yaml:"patientId"`
	DrugName                       int32 `json:"drugName" yaml:"drugName"`
	DrugConcentration              int32 `json:"drugConcentration" yaml:"drugConcentration"`
	InfusionTotalDuration          int32 `json:"infusionTotalDuration" yaml:"infusionTotalDuration"`
	VTBITotal                      int32 `json:"vtbiTotal" yaml:"vtbiTotal"`
	FlowRateBasal                  int32 `json:"flowRateBasal" yaml:"flowRateBasal"`
	FlowRateIntermittentBolus      int32 `json:"flowRateIntermittentBolus" yaml:"flowRateIntermittentBolus"`
	DurationIntermittentBolus      int32 `json:"durationIntermittentBolus" yaml:"durationIntermittentBolus"`
	IntervalIntermittentBolus      int32 `json:"intervalIntermittentBolus" yaml:"intervalIntermittentBolus"`
	FlowRatePatientBolus           int32 `json:"flowRatePatientBolus" yaml:"flowRatePatientBolus"`
	DurationPatientBolus           int32 `json:"durationPatientBolus" yaml:"durationPatientBolus"`
	LockoutPeriodPatientBolus      int32 `json:"lockoutPeriodPatientBolus" yaml:"lockoutPeriodPatientBolus"`
	MaxNumberOfPatientBolus        int32 `json:"maxNumberOfPatientBolus" yaml:"maxNumberOfPatientBolus"`
	FlowRateKVO                    int32 `json:"flowRateKvo" yaml:"flowRateKvo"`
	EnteredReservoirVolume         int32 `json:"enteredReservoirVolume" yaml:"enteredReservoirVolume"`
	ReservoirVolume                int32 `json:"reservoirVolume" yaml:"reservoirVolume"`
	Configured                     int32 `json:"configured" yaml:"configured"`
	ErrorMessageID                 int32 `json:"errorMessageId" yaml:"errorMessageId"`
	RequestConfigType              bool  `json:"requestConfigType" yaml:"requestConfigType"`
	RequestConfirmInfusionInitiate bool  `json:"requestConfirmInfusionInitiate" yaml:"requestConfirmInfusionInitiate"`
	RequestPatientDrugInfo         bool  `json:"requestPatientDrugInfo" yaml:"requestPatientDrugInfo"`
	RequestInfusionInfo            bool  `json:"requestInfusionInfo" yaml:"requestInfusionInfo"`
	LogMessageID                   int32 `json:"logMessageId" yaml:"logMessageId"`
	ConfigTimer                    int32 `json:"configTimer" yaml:"configTimer"`
	ConfigMode                     int32 `json:"configMode" yaml:"configMode"`
}

// AlarmOutputs is published by the alarm subsystem.
type AlarmOutputs struct {
	IsAudioDisabled          int32 `json:"isAudioDisabled" yaml:"isAudioDisabled"`
	NotificationMessage      int32 `json:"notificationMessage" yaml:"notificationMessage"`
	AudioNotificationCommand int32 `json:"audioNotificationCommand" yaml:"audioNotificationCommand"`
	HighestLevelAlarm        int32 `json:"highestLevelAlarm" yaml:"highestLevelAlarm"`
	LogMessageID             int32 `json:"logMessageId" yaml:"logMessageId"`
}

// InfusionManagerOutputs is published by the infusion manager.
type InfusionManagerOutputs struct {
	CommandedFlowRate      int32 `json:"commandedFlowRate" yaml:"commandedFlowRate"`
	CurrentSystemMode      int32 `json:"currentSystemMode" yaml:"currentSystemMode"`
	NewInfusion            bool  `json:"newInfusion" yaml:"newInfusion"`
	LogMessageID           int32 `json:"logMessageId" yaml:"logMessageId"`
	ActualInfusionDuration int32 `json:"actualInfusionDuration" yaml:"actualInfusionDuration"`
}

// Stimulus is everything the environment supplies for one control cycle.
// Chart outputs fed back between subsystems are not part of it.
type Stimulus struct {
	TopLevel      TopLevelMode        `json:"topLevel" yaml:"topLevel"`
	Operator      OperatorCommands    `json:"operator" yaml:"operator"`
	Patient       PatientInputs       `json:"patient" yaml:"patient"`
	SystemMonitor SystemMonitor       `json:"systemMonitor" yaml:"systemMonitor"`
	Logging       LogOutput           `json:"logging" yaml:"logging"`
	DrugDatabase  DrugDatabase        `json:"drugDatabase" yaml:"drugDatabase"`
	Sensors       DeviceSensors       `json:"sensors" yaml:"sensors"`
	Device        DeviceConfiguration `json:"device" yaml:"device"`
	Status        SystemStatus        `json:"status" yaml:"status"`
	Config        ConfigOutputs       `json:"config" yaml:"config"`
}

// Cycle records one control cycle: the stimulus in effect, both
// subsystems' outputs and their active leaf states.
type Cycle struct {
	Tick          uint64                 `json:"tick" yaml:"tick"`
	Stimulus      Stimulus               `json:"stimulus" yaml:"stimulus"`
	Alarm         AlarmOutputs           `json:"alarm" yaml:"alarm"`
	CurrentAlarm  int32                  `json:"currentAlarm" yaml:"currentAlarm"`
	Infusion      InfusionManagerOutputs `json:"infusion" yaml:"infusion"`
	AlarmState    []string               `json:"alarmState,omitempty" yaml:"alarmState,omitempty"`
	InfusionState []string               `json:"infusionState,omitempty" yaml:"infusionState,omitempty"`
	Diagnostics   []string               `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}
