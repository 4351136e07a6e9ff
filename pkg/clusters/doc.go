// Package clusters groups the Matter cluster implementations used by the
// simulated appliances.
//
// # Architecture
//
// Clusters implement the datamodel.Cluster interface and use composition
// to add optional capabilities:
//
//	type MyCluster struct {
//	    *datamodel.ClusterBase   // Core identity, global attributes
//	    *datamodel.EventSource   // Event emission (optional mixin)
//	}
//
// Behaviour shared by several clusters lives in a base package that the
// concrete clusters configure with tables and hooks: modebase for the
// mode-select family and opstate for the operational-state family.
//
// # Subpackages
//
//   - clusters/onoff: On/Off (0x0006)
//   - clusters/descriptor: Descriptor (0x001D)
//   - clusters/basic: Bridged Device Basic Information (0x0039)
//   - clusters/opstate: Operational State (0x0060), Oven Cavity (0x0048), RVC (0x0061)
//   - clusters/modebase, clusters/modes: mode-select clusters (0x0049 .. 0x009E)
//   - clusters/temperature: Temperature Control (0x0056)
//   - clusters/microwave: Microwave Oven Control (0x005F)
//   - clusters/params: fallback-to-default parameter resolution
//   - clusters/servicearea: Service Area (0x0150)
//   - clusters/fancontrol: Fan Control (0x0202)
//   - clusters/illuminance: Illuminance Measurement (0x0400)
package clusters
