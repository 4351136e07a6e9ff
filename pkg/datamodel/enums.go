// Package datamodel provides the Node → Endpoint → Cluster hierarchy the
// appliance clusters are built on, plus the host boundary used to drive
// them: endpoint registration, attribute get/set/subscribe, command
// dispatch and event publication.
package datamodel

// Privilege defines access privilege levels.
type Privilege int

const (
	// PrivilegeUnknown indicates an uninitialized or invalid privilege.
	PrivilegeUnknown Privilege = iota

	// PrivilegeView allows read access to attributes and events.
	PrivilegeView

	// PrivilegeOperate allows read/write/invoke access for normal operations.
	PrivilegeOperate

	// PrivilegeManage allows configuration and management operations.
	PrivilegeManage

	// PrivilegeAdminister allows full administrative control.
	PrivilegeAdminister
)

// String returns a human-readable name for the privilege level.
func (p Privilege) String() string {
	switch p {
	case PrivilegeView:
		return "View"
	case PrivilegeOperate:
		return "Operate"
	case PrivilegeManage:
		return "Manage"
	case PrivilegeAdminister:
		return "Administer"
	default:
		return "Unknown"
	}
}

// IsValid returns true if the privilege is a defined value.
func (p Privilege) IsValid() bool {
	return p >= PrivilegeView && p <= PrivilegeAdminister
}

// AttributeQuality defines quality flags for attributes.
type AttributeQuality uint32

const (
	// AttrQualityChangesOmitted indicates fast-changing data that won't be
	// reported in subscriptions (C quality).
	AttrQualityChangesOmitted AttributeQuality = 1 << iota

	// AttrQualityFixed indicates read-only data that rarely changes (F quality).
	AttrQualityFixed

	// AttrQualityNonVolatile indicates persistent data across restarts (N quality).
	AttrQualityNonVolatile

	// AttrQualityReportable indicates the attribute supports reporting (P quality).
	AttrQualityReportable

	// AttrQualityQuieter indicates data where some changes are meaningless
	// to report (Q quality).
	AttrQualityQuieter

	// AttrQualityNullable indicates the data type is nullable (X quality).
	AttrQualityNullable

	// AttrQualityList indicates this attribute is a list type.
	AttrQualityList
)

// String returns a human-readable representation of the quality flags.
func (q AttributeQuality) String() string {
	var result string
	if q&AttrQualityChangesOmitted != 0 {
		result += "C"
	}
	if q&AttrQualityFixed != 0 {
		result += "F"
	}
	if q&AttrQualityNonVolatile != 0 {
		result += "N"
	}
	if q&AttrQualityReportable != 0 {
		result += "P"
	}
	if q&AttrQualityQuieter != 0 {
		result += "Q"
	}
	if q&AttrQualityNullable != 0 {
		result += "X"
	}
	if q&AttrQualityList != 0 {
		result += "[List]"
	}

	if result == "" {
		return "None"
	}
	return result
}

// CommandQuality defines quality flags for commands.
type CommandQuality uint32

const (
	// CmdQualityTimed indicates the command requires timed interaction (T quality).
	CmdQualityTimed CommandQuality = 1 << iota
)

// EventPriority defines the priority level for events.
type EventPriority int

const (
	// EventPriorityDebug is for debugging information.
	EventPriorityDebug EventPriority = iota

	// EventPriorityInfo is for informational events.
	EventPriorityInfo

	// EventPriorityCritical is for critical events that must not be lost.
	EventPriorityCritical
)

// String returns a human-readable name for the event priority.
func (p EventPriority) String() string {
	switch p {
	case EventPriorityDebug:
		return "Debug"
	case EventPriorityInfo:
		return "Info"
	case EventPriorityCritical:
		return "Critical"
	default:
		return "Unknown"
	}
}

// EndpointComposition defines endpoint composition patterns.
type EndpointComposition int

const (
	// CompositionUnknown indicates an uninitialized composition pattern.
	CompositionUnknown EndpointComposition = iota

	// CompositionTree supports a general tree of endpoints.
	// Used for physical device composition (e.g., Refrigerator).
	CompositionTree

	// CompositionFullFamily is a flat list of all descendant endpoints.
	// Used by Root Node and Aggregator device types.
	CompositionFullFamily
)

// String returns a human-readable name for the composition pattern.
func (c EndpointComposition) String() string {
	switch c {
	case CompositionTree:
		return "Tree"
	case CompositionFullFamily:
		return "FullFamily"
	default:
		return "Unknown"
	}
}
