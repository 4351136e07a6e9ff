package modes

import (
	"github.com/backkem/matter-appliances/pkg/clusters/modebase"
	"github.com/backkem/matter-appliances/pkg/datamodel"
)

// RVC Run Mode (0x0054) and RVC Clean Mode (0x0055) clusters.
const (
	RvcRunModeClusterID   datamodel.ClusterID = 0x0054
	RvcCleanModeClusterID datamodel.ClusterID = 0x0055
	RvcModeRevision       uint16              = 3
)

// RVC run mode tags.
const (
	TagRvcIdle     modebase.ModeTag = 0x4000
	TagRvcCleaning modebase.ModeTag = 0x4001
	TagRvcMapping  modebase.ModeTag = 0x4002
)

// RVC clean mode tags.
const (
	TagRvcDeepClean     modebase.ModeTag = 0x4000
	TagRvcVacuum        modebase.ModeTag = 0x4001
	TagRvcMop           modebase.ModeTag = 0x4002
	TagRvcVacuumThenMop modebase.ModeTag = 0x4003
)

// RvcRunModes returns the default RVC run mode table.
func RvcRunModes() []modebase.ModeOption {
	return []modebase.ModeOption{
		{Label: "Idle", Mode: 1, ModeTags: tags(TagRvcIdle)},
		{Label: "Cleaning", Mode: 2, ModeTags: tags(TagRvcCleaning)},
		{Label: "Mapping", Mode: 3, ModeTags: tags(TagRvcMapping)},
	}
}

// RvcCleanModes returns the default RVC clean mode table.
func RvcCleanModes() []modebase.ModeOption {
	return []modebase.ModeOption{
		{Label: "Vacuum", Mode: 1, ModeTags: tags(TagRvcVacuum)},
		{Label: "Mop", Mode: 2, ModeTags: tags(TagRvcMop)},
		{Label: "Vacuum then Mop", Mode: 3, ModeTags: tags(TagRvcVacuumThenMop)},
		{Label: "Deep Clean", Mode: 4, ModeTags: tags(TagRvcDeepClean, TagRvcVacuum, modebase.TagMax)},
	}
}

// NewRvcRunMode creates an RVC Run Mode cluster.
func NewRvcRunMode(cfg modebase.Config) (*modebase.Cluster, error) {
	return newCluster(RvcRunModeClusterID, RvcModeRevision, RvcRunModes(), cfg)
}

// NewRvcCleanMode creates an RVC Clean Mode cluster.
func NewRvcCleanMode(cfg modebase.Config) (*modebase.Cluster, error) {
	return newCluster(RvcCleanModeClusterID, RvcModeRevision, RvcCleanModes(), cfg)
}
