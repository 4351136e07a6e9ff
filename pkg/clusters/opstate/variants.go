package opstate

import "github.com/backkem/matter-appliances/pkg/datamodel"

// Cluster IDs of the operational state variants.
const (
	OvenCavityClusterID datamodel.ClusterID = 0x0048
	GenericClusterID    datamodel.ClusterID = 0x0060
	RvcClusterID        datamodel.ClusterID = 0x0061
)

// Attribute IDs, shared by every variant.
const (
	AttrPhaseList            datamodel.AttributeID = 0x0000
	AttrCurrentPhase         datamodel.AttributeID = 0x0001
	AttrCountdownTime        datamodel.AttributeID = 0x0002
	AttrOperationalStateList datamodel.AttributeID = 0x0003
	AttrOperationalState     datamodel.AttributeID = 0x0004
	AttrOperationalError     datamodel.AttributeID = 0x0005
)

// Command IDs.
const (
	CmdPause                      datamodel.CommandID = 0x00
	CmdStop                       datamodel.CommandID = 0x01
	CmdStart                      datamodel.CommandID = 0x02
	CmdResume                     datamodel.CommandID = 0x03
	CmdOperationalCommandResponse datamodel.CommandID = 0x04
	CmdGoHome                     datamodel.CommandID = 0x80
)

// Event IDs.
const (
	EventOperationalError    datamodel.EventID = 0x00
	EventOperationCompletion datamodel.EventID = 0x01
)

// Limits.
const (
	MaxPhases        = 32
	MaxCountdownTime = 259200
)

// Definition describes an operational state cluster variant: its id,
// accepted commands and state table.
type Definition struct {
	Name      string
	ClusterID datamodel.ClusterID
	Revision  uint16
	Commands  []datamodel.CommandID
	States    []OperationalStateStruct
}

// Supports reports whether the variant accepts cmd.
func (d Definition) Supports(cmd datamodel.CommandID) bool {
	for _, c := range d.Commands {
		if c == cmd {
			return true
		}
	}
	return false
}

// HasState reports whether id is in the variant's state table.
func (d Definition) HasState(id StateID) bool {
	for _, s := range d.States {
		if s.ID == id {
			return true
		}
	}
	return false
}

var baselineStates = []OperationalStateStruct{
	{ID: StateStopped, Label: "Stopped"},
	{ID: StateRunning, Label: "Running"},
	{ID: StatePaused, Label: "Paused"},
	{ID: StateError, Label: "Error"},
}

// OvenCavityDefinition is the Oven Cavity Operational State cluster: stop
// and start only.
func OvenCavityDefinition() Definition {
	return Definition{
		Name:      "OvenCavityOperationalState",
		ClusterID: OvenCavityClusterID,
		Revision:  2,
		Commands:  []datamodel.CommandID{CmdStop, CmdStart},
		States:    append([]OperationalStateStruct(nil), baselineStates...),
	}
}

// GenericDefinition is the Operational State cluster used by dishwashers,
// laundry washers and microwave ovens.
func GenericDefinition() Definition {
	return Definition{
		Name:      "OperationalState",
		ClusterID: GenericClusterID,
		Revision:  2,
		Commands:  []datamodel.CommandID{CmdPause, CmdStop, CmdStart, CmdResume},
		States:    append([]OperationalStateStruct(nil), baselineStates...),
	}
}

// RvcDefinition is the RVC Operational State cluster with the charging
// and docking extension.
func RvcDefinition() Definition {
	states := append([]OperationalStateStruct(nil), baselineStates...)
	states = append(states,
		OperationalStateStruct{ID: StateSeekingCharger, Label: "Seeking Charger"},
		OperationalStateStruct{ID: StateCharging, Label: "Charging"},
		OperationalStateStruct{ID: StateDocked, Label: "Docked"},
	)
	return Definition{
		Name:      "RvcOperationalState",
		ClusterID: RvcClusterID,
		Revision:  2,
		Commands:  []datamodel.CommandID{CmdPause, CmdStop, CmdStart, CmdResume, CmdGoHome},
		States:    states,
	}
}
