package opstate

// StateID is an OperationalState value.
type StateID uint8

// Baseline states.
const (
	StateStopped StateID = 0x00
	StateRunning StateID = 0x01
	StatePaused  StateID = 0x02
	StateError   StateID = 0x03
)

// RVC extension states.
const (
	StateSeekingCharger StateID = 0x40
	StateCharging       StateID = 0x41
	StateDocked         StateID = 0x42
)

// String returns the name of the state.
func (s StateID) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateRunning:
		return "Running"
	case StatePaused:
		return "Paused"
	case StateError:
		return "Error"
	case StateSeekingCharger:
		return "SeekingCharger"
	case StateCharging:
		return "Charging"
	case StateDocked:
		return "Docked"
	default:
		return "Unknown"
	}
}

// ErrorID is an ErrorStateID value.
type ErrorID uint8

// Baseline error ids.
const (
	ErrorNoError                   ErrorID = 0x00
	ErrorUnableToStartOrResume     ErrorID = 0x01
	ErrorUnableToCompleteOperation ErrorID = 0x02
	ErrorCommandInvalidInState     ErrorID = 0x03
)

// RVC extension error ids.
const (
	ErrorFailedToFindChargingDock ErrorID = 0x40
	ErrorStuck                    ErrorID = 0x41
	ErrorDustBinMissing           ErrorID = 0x42
	ErrorDustBinFull              ErrorID = 0x43
	ErrorWaterTankEmpty           ErrorID = 0x44
	ErrorWaterTankMissing         ErrorID = 0x45
	ErrorWaterTankLidOpen         ErrorID = 0x46
	ErrorMopCleaningPadMissing    ErrorID = 0x47
)

// Manufacturer specific error id range.
const (
	ErrorManufacturerMin ErrorID = 0x80
	ErrorManufacturerMax ErrorID = 0xBF
)

// IsManufacturerSpecific reports whether the id is in the manufacturer range.
func (e ErrorID) IsManufacturerSpecific() bool {
	return e >= ErrorManufacturerMin && e <= ErrorManufacturerMax
}

// String returns the name of the error id.
func (e ErrorID) String() string {
	switch e {
	case ErrorNoError:
		return "NoError"
	case ErrorUnableToStartOrResume:
		return "UnableToStartOrResume"
	case ErrorUnableToCompleteOperation:
		return "UnableToCompleteOperation"
	case ErrorCommandInvalidInState:
		return "CommandInvalidInState"
	case ErrorFailedToFindChargingDock:
		return "FailedToFindChargingDock"
	case ErrorStuck:
		return "Stuck"
	case ErrorDustBinMissing:
		return "DustBinMissing"
	case ErrorDustBinFull:
		return "DustBinFull"
	case ErrorWaterTankEmpty:
		return "WaterTankEmpty"
	case ErrorWaterTankMissing:
		return "WaterTankMissing"
	case ErrorWaterTankLidOpen:
		return "WaterTankLidOpen"
	case ErrorMopCleaningPadMissing:
		return "MopCleaningPadMissing"
	}
	if e.IsManufacturerSpecific() {
		return "ManufacturerSpecific"
	}
	return "Unknown"
}

// OperationalStateStruct is one entry of the OperationalStateList.
type OperationalStateStruct struct {
	ID    StateID
	Label string
}

// ErrorState is the OperationalError attribute and the payload of command
// responses. Label is mandatory for manufacturer specific ids only.
type ErrorState struct {
	ID      ErrorID
	Label   string
	Details string
}

// NoError is the nominal error state.
var NoError = ErrorState{ID: ErrorNoError}

// OperationalCommandResponse is returned by every operational command.
type OperationalCommandResponse struct {
	CommandResponseState ErrorState
}

// Succeeded reports whether the command completed without error.
func (r OperationalCommandResponse) Succeeded() bool {
	return r.CommandResponseState.ID == ErrorNoError
}

// OperationalErrorEvent is emitted when the device enters an error state.
// Priority: CRITICAL
type OperationalErrorEvent struct {
	ErrorState ErrorState
}

// OperationCompletionEvent is emitted when an operation ends.
// Priority: INFO
type OperationCompletionEvent struct {
	CompletionErrorCode  ErrorID
	TotalOperationalTime *uint32
	PausedTime           *uint32
}
