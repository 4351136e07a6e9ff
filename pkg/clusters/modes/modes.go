// Package modes defines the Mode Base derived clusters used by the
// appliance fleet: their cluster ids, semantic tags and default mode
// tables. Behaviour lives in modebase.
package modes

import (
	"github.com/backkem/matter-appliances/pkg/clusters/modebase"
	"github.com/backkem/matter-appliances/pkg/datamodel"
)

// DeadFrontMode is the mode a dead front coupling forces when the
// appliance is switched off. Mode tables of appliances with dead front
// behavior must include it. In the dishwasher and laundry washer tables
// it is the Normal program, which is also the washers' initial mode, so
// an appliance switched off returns to its default program.
const DeadFrontMode uint8 = 2

// newCluster fills in the derived cluster identity and, when the caller
// supplies no table, the default modes with the first entry as initial mode.
func newCluster(id datamodel.ClusterID, revision uint16, defaults []modebase.ModeOption, cfg modebase.Config) (*modebase.Cluster, error) {
	cfg.ClusterID = id
	cfg.Revision = revision
	if len(cfg.SupportedModes) == 0 {
		cfg.SupportedModes = defaults
		if !hasMode(defaults, cfg.InitialMode) {
			cfg.InitialMode = defaults[0].Mode
		}
	}
	return modebase.New(cfg)
}

func hasMode(modes []modebase.ModeOption, id uint8) bool {
	for _, m := range modes {
		if m.Mode == id {
			return true
		}
	}
	return false
}

func tags(t ...modebase.ModeTag) []modebase.ModeTag { return t }
