package modebase

import (
	"slices"

	"github.com/backkem/matter-appliances/pkg/datamodel"
)

// ModeTag is a semantic tag attached to a mode option. Values below
// 0x4000 are common to every mode cluster; derived clusters define their
// own tags from 0x4000 upwards.
type ModeTag uint16

// Common mode tags.
const (
	TagAuto      ModeTag = 0x0000
	TagQuick     ModeTag = 0x0001
	TagQuiet     ModeTag = 0x0002
	TagLowNoise  ModeTag = 0x0003
	TagLowEnergy ModeTag = 0x0004
	TagVacation  ModeTag = 0x0005
	TagMin       ModeTag = 0x0006
	TagMax       ModeTag = 0x0007
	TagNight     ModeTag = 0x0008
	TagDay       ModeTag = 0x0009
)

// ModeOption is one entry of the SupportedModes attribute.
type ModeOption struct {
	Label    string
	Mode     uint8
	ModeTags []ModeTag
}

// HasTag reports whether the option carries tag.
func (m ModeOption) HasTag(tag ModeTag) bool {
	return slices.Contains(m.ModeTags, tag)
}

// ChangeToModeStatus is the status carried in ChangeToModeResponse.
type ChangeToModeStatus uint8

const (
	StatusSuccess         ChangeToModeStatus = 0x00
	StatusUnsupportedMode ChangeToModeStatus = 0x01
	StatusGenericFailure  ChangeToModeStatus = 0x02
	StatusInvalidInMode   ChangeToModeStatus = 0x03
)

// String returns the name of the status.
func (s ChangeToModeStatus) String() string {
	switch s {
	case StatusSuccess:
		return "Success"
	case StatusUnsupportedMode:
		return "UnsupportedMode"
	case StatusGenericFailure:
		return "GenericFailure"
	case StatusInvalidInMode:
		return "InvalidInMode"
	default:
		return "Unknown"
	}
}

// ChangeToModeRequest represents the ChangeToMode command request.
type ChangeToModeRequest struct {
	NewMode uint8
}

// ChangeToModeResponse represents the ChangeToModeResponse command.
type ChangeToModeResponse struct {
	Status     ChangeToModeStatus
	StatusText string
}

// ModeChangedFunc is called after a ChangeToMode command switched the
// current mode. It receives the resolved option so handlers can branch on
// tags instead of raw ids.
type ModeChangedFunc func(endpoint datamodel.EndpointID, mode ModeOption)
