package modes

import (
	"github.com/backkem/matter-appliances/pkg/clusters/modebase"
	"github.com/backkem/matter-appliances/pkg/datamodel"
)

// Microwave Oven Mode cluster (0x005E). Its mode is set through the
// Microwave Oven Control cluster, so ChangeToMode is not offered.
const (
	MicrowaveOvenModeClusterID datamodel.ClusterID = 0x005E
	MicrowaveOvenModeRevision  uint16              = 1
)

// Microwave oven mode tags.
const (
	TagMicrowaveNormal  modebase.ModeTag = 0x4000
	TagMicrowaveDefrost modebase.ModeTag = 0x4001
)

// MicrowaveOvenModes returns the default microwave mode table.
func MicrowaveOvenModes() []modebase.ModeOption {
	return []modebase.ModeOption{
		{Label: "Normal", Mode: 1, ModeTags: tags(TagMicrowaveNormal)},
		{Label: "Defrost", Mode: 2, ModeTags: tags(TagMicrowaveDefrost)},
	}
}

// NewMicrowaveOvenMode creates a Microwave Oven Mode cluster.
func NewMicrowaveOvenMode(cfg modebase.Config) (*modebase.Cluster, error) {
	cfg.DisableChangeToMode = true
	return newCluster(MicrowaveOvenModeClusterID, MicrowaveOvenModeRevision, MicrowaveOvenModes(), cfg)
}
