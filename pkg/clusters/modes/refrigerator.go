package modes

import (
	"github.com/backkem/matter-appliances/pkg/clusters/modebase"
	"github.com/backkem/matter-appliances/pkg/datamodel"
)

// Refrigerator And Temperature Controlled Cabinet Mode cluster (0x0052).
const (
	RefrigeratorModeClusterID datamodel.ClusterID = 0x0052
	RefrigeratorModeRevision  uint16              = 2
)

// Refrigerator mode tags.
const (
	TagRefrigeratorRapidCool   modebase.ModeTag = 0x4000
	TagRefrigeratorRapidFreeze modebase.ModeTag = 0x4001
)

// RefrigeratorModes returns the default cabinet mode table.
func RefrigeratorModes() []modebase.ModeOption {
	return []modebase.ModeOption{
		{Label: "Normal", Mode: 1, ModeTags: tags(modebase.TagAuto)},
		{Label: "Energy Save", Mode: 2, ModeTags: tags(modebase.TagLowEnergy)},
		{Label: "Rapid Cool", Mode: 3, ModeTags: tags(TagRefrigeratorRapidCool, modebase.TagMax)},
		{Label: "Rapid Freeze", Mode: 4, ModeTags: tags(TagRefrigeratorRapidFreeze, modebase.TagMax)},
	}
}

// NewRefrigeratorMode creates a Refrigerator And Temperature Controlled
// Cabinet Mode cluster.
func NewRefrigeratorMode(cfg modebase.Config) (*modebase.Cluster, error) {
	return newCluster(RefrigeratorModeClusterID, RefrigeratorModeRevision, RefrigeratorModes(), cfg)
}
