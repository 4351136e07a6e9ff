package modes

import (
	"github.com/backkem/matter-appliances/pkg/clusters/modebase"
	"github.com/backkem/matter-appliances/pkg/datamodel"
)

// Oven Mode cluster (0x0049).
const (
	OvenModeClusterID datamodel.ClusterID = 0x0049
	OvenModeRevision  uint16              = 2
)

// Oven mode tags.
const (
	TagOvenBake            modebase.ModeTag = 0x4000
	TagOvenConvection      modebase.ModeTag = 0x4001
	TagOvenGrill           modebase.ModeTag = 0x4002
	TagOvenRoast           modebase.ModeTag = 0x4003
	TagOvenClean           modebase.ModeTag = 0x4004
	TagOvenConvectionBake  modebase.ModeTag = 0x4005
	TagOvenConvectionRoast modebase.ModeTag = 0x4006
	TagOvenWarming         modebase.ModeTag = 0x4007
	TagOvenProofing        modebase.ModeTag = 0x4008
	TagOvenSteam           modebase.ModeTag = 0x4009
)

// OvenModes returns the default oven mode table, one mode per tag.
func OvenModes() []modebase.ModeOption {
	return []modebase.ModeOption{
		{Label: "Bake", Mode: 1, ModeTags: tags(TagOvenBake)},
		{Label: "Convection", Mode: 2, ModeTags: tags(TagOvenConvection)},
		{Label: "Grill", Mode: 3, ModeTags: tags(TagOvenGrill)},
		{Label: "Roast", Mode: 4, ModeTags: tags(TagOvenRoast)},
		{Label: "Clean", Mode: 5, ModeTags: tags(TagOvenClean)},
		{Label: "Convection Bake", Mode: 6, ModeTags: tags(TagOvenConvectionBake)},
		{Label: "Convection Roast", Mode: 7, ModeTags: tags(TagOvenConvectionRoast)},
		{Label: "Warming", Mode: 8, ModeTags: tags(TagOvenWarming)},
		{Label: "Proofing", Mode: 9, ModeTags: tags(TagOvenProofing)},
		{Label: "Steam", Mode: 10, ModeTags: tags(TagOvenSteam)},
	}
}

// NewOvenMode creates an Oven Mode cluster.
func NewOvenMode(cfg modebase.Config) (*modebase.Cluster, error) {
	return newCluster(OvenModeClusterID, OvenModeRevision, OvenModes(), cfg)
}
