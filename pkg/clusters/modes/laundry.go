package modes

import (
	"github.com/backkem/matter-appliances/pkg/clusters/modebase"
	"github.com/backkem/matter-appliances/pkg/datamodel"
)

// Laundry Washer Mode cluster (0x0051).
const (
	LaundryWasherModeClusterID datamodel.ClusterID = 0x0051
	LaundryWasherModeRevision  uint16              = 2
)

// Laundry washer mode tags.
const (
	TagLaundryNormal   modebase.ModeTag = 0x4000
	TagLaundryDelicate modebase.ModeTag = 0x4001
	TagLaundryHeavy    modebase.ModeTag = 0x4002
	TagLaundryWhites   modebase.ModeTag = 0x4003
)

// LaundryWasherModes returns the default laundry washer mode table.
func LaundryWasherModes() []modebase.ModeOption {
	return []modebase.ModeOption{
		{Label: "Delicate", Mode: 1, ModeTags: tags(TagLaundryDelicate, modebase.TagQuiet)},
		{Label: "Normal", Mode: 2, ModeTags: tags(TagLaundryNormal)},
		{Label: "Heavy", Mode: 3, ModeTags: tags(TagLaundryHeavy, modebase.TagMax)},
		{Label: "Whites", Mode: 4, ModeTags: tags(TagLaundryWhites)},
	}
}

// NewLaundryWasherMode creates a Laundry Washer Mode cluster.
func NewLaundryWasherMode(cfg modebase.Config) (*modebase.Cluster, error) {
	return newCluster(LaundryWasherModeClusterID, LaundryWasherModeRevision, LaundryWasherModes(), cfg)
}
