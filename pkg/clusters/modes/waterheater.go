package modes

import (
	"github.com/backkem/matter-appliances/pkg/clusters/modebase"
	"github.com/backkem/matter-appliances/pkg/datamodel"
)

// Water Heater Mode cluster (0x009E).
const (
	WaterHeaterModeClusterID datamodel.ClusterID = 0x009E
	WaterHeaterModeRevision  uint16              = 1
)

// Water heater mode tags.
const (
	TagWaterHeaterOff    modebase.ModeTag = 0x4000
	TagWaterHeaterManual modebase.ModeTag = 0x4001
	TagWaterHeaterTimed  modebase.ModeTag = 0x4002
)

// WaterHeaterModes returns the default water heater mode table.
func WaterHeaterModes() []modebase.ModeOption {
	return []modebase.ModeOption{
		{Label: "Off", Mode: 1, ModeTags: tags(TagWaterHeaterOff)},
		{Label: "Manual", Mode: 2, ModeTags: tags(TagWaterHeaterManual)},
		{Label: "Timed", Mode: 3, ModeTags: tags(TagWaterHeaterTimed)},
	}
}

// NewWaterHeaterMode creates a Water Heater Mode cluster.
func NewWaterHeaterMode(cfg modebase.Config) (*modebase.Cluster, error) {
	return newCluster(WaterHeaterModeClusterID, WaterHeaterModeRevision, WaterHeaterModes(), cfg)
}
