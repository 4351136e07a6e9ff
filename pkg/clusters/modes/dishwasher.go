package modes

import (
	"github.com/backkem/matter-appliances/pkg/clusters/modebase"
	"github.com/backkem/matter-appliances/pkg/datamodel"
)

// Dishwasher Mode cluster (0x0059).
const (
	DishwasherModeClusterID datamodel.ClusterID = 0x0059
	DishwasherModeRevision  uint16              = 2
)

// Dishwasher mode tags.
const (
	TagDishwasherNormal modebase.ModeTag = 0x4000
	TagDishwasherHeavy  modebase.ModeTag = 0x4001
	TagDishwasherLight  modebase.ModeTag = 0x4002
)

// DishwasherModes returns the default dishwasher mode table.
func DishwasherModes() []modebase.ModeOption {
	return []modebase.ModeOption{
		{Label: "Light", Mode: 1, ModeTags: tags(TagDishwasherLight, modebase.TagLowEnergy)},
		{Label: "Normal", Mode: 2, ModeTags: tags(TagDishwasherNormal)},
		{Label: "Heavy", Mode: 3, ModeTags: tags(TagDishwasherHeavy, modebase.TagMax)},
	}
}

// NewDishwasherMode creates a Dishwasher Mode cluster.
func NewDishwasherMode(cfg modebase.Config) (*modebase.Cluster, error) {
	return newCluster(DishwasherModeClusterID, DishwasherModeRevision, DishwasherModes(), cfg)
}
