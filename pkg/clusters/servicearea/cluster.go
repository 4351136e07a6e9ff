// Package servicearea implements the Service Area cluster (0x0150): the
// list of areas a robot can serve, the client's selection and the area
// currently being served.
package servicearea

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/backkem/matter-appliances/pkg/datamodel"
	"github.com/pion/logging"
)

// Cluster constants.
const (
	ClusterID       datamodel.ClusterID = 0x0150
	ClusterRevision uint16              = 1
)

// Attribute IDs.
const (
	AttrSupportedAreas datamodel.AttributeID = 0x0000
	AttrSupportedMaps  datamodel.AttributeID = 0x0001
	AttrSelectedAreas  datamodel.AttributeID = 0x0002
	AttrCurrentArea    datamodel.AttributeID = 0x0003
)

// Command IDs.
const (
	CmdSelectAreas         datamodel.CommandID = 0x00
	CmdSelectAreasResponse datamodel.CommandID = 0x01
	CmdSkipArea            datamodel.CommandID = 0x02
	CmdSkipAreaResponse    datamodel.CommandID = 0x03
)

// Feature bits.
type Feature uint32

const (
	FeatureSelectWhileRunning Feature = 1 << 0 // SELRUN
	FeatureProgressReporting  Feature = 1 << 1 // PROG
	FeatureMaps               Feature = 1 << 2 // MAPS
)

// MaxAreas bounds SupportedAreas.
const MaxAreas = 255

// Errors.
var (
	ErrNoAreas       = errors.New("servicearea: at least one area is required")
	ErrDuplicateArea = errors.New("servicearea: duplicate area id")
	ErrUnknownArea   = errors.New("servicearea: unknown area")
)

// Area is an entry of SupportedAreas.
type Area struct {
	AreaID uint32
	MapID  *uint32
	Name   string
}

// Map is an entry of SupportedMaps.
type Map struct {
	MapID uint32
	Name  string
}

// SelectAreasStatus is the status of a SelectAreasResponse.
type SelectAreasStatus uint8

const (
	SelectAreasSuccess         SelectAreasStatus = 0
	SelectAreasUnsupportedArea SelectAreasStatus = 1
	SelectAreasInvalidInMode   SelectAreasStatus = 2
	SelectAreasInvalidSet      SelectAreasStatus = 3
)

func (s SelectAreasStatus) String() string {
	switch s {
	case SelectAreasSuccess:
		return "Success"
	case SelectAreasUnsupportedArea:
		return "UnsupportedArea"
	case SelectAreasInvalidInMode:
		return "InvalidInMode"
	case SelectAreasInvalidSet:
		return "InvalidSet"
	default:
		return fmt.Sprintf("SelectAreasStatus(%d)", uint8(s))
	}
}

// SkipAreaStatus is the status of a SkipAreaResponse.
type SkipAreaStatus uint8

const (
	SkipAreaSuccess            SkipAreaStatus = 0
	SkipAreaInvalidAreaList    SkipAreaStatus = 1
	SkipAreaInvalidInMode      SkipAreaStatus = 2
	SkipAreaInvalidSkippedArea SkipAreaStatus = 3
)

func (s SkipAreaStatus) String() string {
	switch s {
	case SkipAreaSuccess:
		return "Success"
	case SkipAreaInvalidAreaList:
		return "InvalidAreaList"
	case SkipAreaInvalidInMode:
		return "InvalidInMode"
	case SkipAreaInvalidSkippedArea:
		return "InvalidSkippedArea"
	default:
		return fmt.Sprintf("SkipAreaStatus(%d)", uint8(s))
	}
}

// SelectAreasRequest represents the SelectAreas command.
type SelectAreasRequest struct {
	NewAreas []uint32
}

// SelectAreasResponse represents the SelectAreasResponse command.
type SelectAreasResponse struct {
	Status     SelectAreasStatus
	StatusText string
}

// SkipAreaRequest represents the SkipArea command.
type SkipAreaRequest struct {
	SkippedArea uint32
}

// SkipAreaResponse represents the SkipAreaResponse command.
type SkipAreaResponse struct {
	Status     SkipAreaStatus
	StatusText string
}

// Config provides dependencies for a Service Area cluster.
type Config struct {
	// EndpointID is the endpoint this cluster belongs to.
	EndpointID datamodel.EndpointID

	// FeatureMap indicates supported features.
	FeatureMap Feature

	// Areas is the SupportedAreas list.
	Areas []Area

	// Maps is the SupportedMaps list, used with FeatureMaps.
	Maps []Map

	// Operating reports whether the device is currently operating. A
	// selection change while operating needs FeatureSelectWhileRunning,
	// and SkipArea is only valid while operating. Nil means never.
	Operating func() bool

	// LoggerFactory for scoped logging; nil disables logging.
	LoggerFactory logging.LoggerFactory
}

// Cluster implements the Service Area cluster.
type Cluster struct {
	*datamodel.ClusterBase
	config Config
	log    logging.LeveledLogger

	mu       sync.RWMutex
	selected []uint32
	current  *uint32
	skipped  map[uint32]bool

	attrList []datamodel.AttributeEntry
}

// New creates a Service Area cluster.
func New(cfg Config) (*Cluster, error) {
	if len(cfg.Areas) == 0 || len(cfg.Areas) > MaxAreas {
		return nil, fmt.Errorf("%w: got %d", ErrNoAreas, len(cfg.Areas))
	}
	seen := make(map[uint32]bool, len(cfg.Areas))
	for _, a := range cfg.Areas {
		if seen[a.AreaID] {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateArea, a.AreaID)
		}
		seen[a.AreaID] = true
	}
	cfg.Areas = slices.Clone(cfg.Areas)
	cfg.Maps = slices.Clone(cfg.Maps)

	c := &Cluster{
		ClusterBase: datamodel.NewClusterBase(ClusterID, cfg.EndpointID, ClusterRevision),
		config:      cfg,
		skipped:     make(map[uint32]bool),
	}
	c.ClusterBase.SetFeatureMap(uint32(cfg.FeatureMap))

	if cfg.LoggerFactory != nil {
		c.log = cfg.LoggerFactory.NewLogger("servicearea")
	}

	view := datamodel.PrivilegeView
	attrs := []datamodel.AttributeEntry{
		datamodel.NewReadOnlyAttribute(AttrSupportedAreas, datamodel.AttrQualityList, view),
		datamodel.NewReadOnlyAttribute(AttrSelectedAreas, datamodel.AttrQualityList, view),
		datamodel.NewReadOnlyAttribute(AttrCurrentArea, datamodel.AttrQualityNullable, view),
	}
	if cfg.FeatureMap&FeatureMaps != 0 {
		attrs = append(attrs, datamodel.NewReadOnlyAttribute(AttrSupportedMaps, datamodel.AttrQualityList, view))
	}
	c.attrList = datamodel.MergeAttributeLists(attrs)
	return c, nil
}

// AttributeList implements datamodel.Cluster.
func (c *Cluster) AttributeList() []datamodel.AttributeEntry {
	return c.attrList
}

// AcceptedCommandList implements datamodel.Cluster.
func (c *Cluster) AcceptedCommandList() []datamodel.CommandEntry {
	return []datamodel.CommandEntry{
		datamodel.NewCommandEntry(CmdSelectAreas, 0, datamodel.PrivilegeOperate),
		datamodel.NewCommandEntry(CmdSkipArea, 0, datamodel.PrivilegeOperate),
	}
}

// GeneratedCommandList implements datamodel.Cluster.
func (c *Cluster) GeneratedCommandList() []datamodel.CommandID {
	return []datamodel.CommandID{CmdSelectAreasResponse, CmdSkipAreaResponse}
}

// ReadAttribute implements datamodel.Cluster.
func (c *Cluster) ReadAttribute(ctx context.Context, req datamodel.ReadAttributeRequest) (any, error) {
	if v, ok := c.ReadGlobalAttribute(req.Path.Attribute, c.attrList, c.AcceptedCommandList(), c.GeneratedCommandList()); ok {
		return v, nil
	}
	if datamodel.FindAttribute(c.attrList, req.Path.Attribute) == nil {
		return nil, datamodel.ErrUnsupportedAttribute
	}

	switch req.Path.Attribute {
	case AttrSupportedAreas:
		return c.SupportedAreas(), nil
	case AttrSupportedMaps:
		return slices.Clone(c.config.Maps), nil
	case AttrSelectedAreas:
		return c.SelectedAreas(), nil
	case AttrCurrentArea:
		return c.CurrentArea(), nil
	default:
		return nil, datamodel.ErrUnsupportedAttribute
	}
}

// WriteAttribute implements datamodel.Cluster. No attribute is writable.
func (c *Cluster) WriteAttribute(ctx context.Context, req datamodel.WriteAttributeRequest, value any) error {
	return datamodel.ErrUnsupportedWrite
}

// InvokeCommand implements datamodel.Cluster.
func (c *Cluster) InvokeCommand(ctx context.Context, req datamodel.InvokeRequest, fields any) (any, error) {
	switch req.Path.Command {
	case CmdSelectAreas:
		switch r := fields.(type) {
		case SelectAreasRequest:
			return c.SelectAreas(r.NewAreas), nil
		case *SelectAreasRequest:
			if r == nil {
				return nil, datamodel.ErrInvalidCommand
			}
			return c.SelectAreas(r.NewAreas), nil
		default:
			return nil, fmt.Errorf("%w: SelectAreas wants SelectAreasRequest, got %T", datamodel.ErrInvalidDataType, fields)
		}
	case CmdSkipArea:
		switch r := fields.(type) {
		case SkipAreaRequest:
			return c.SkipArea(r.SkippedArea), nil
		case *SkipAreaRequest:
			if r == nil {
				return nil, datamodel.ErrInvalidCommand
			}
			return c.SkipArea(r.SkippedArea), nil
		default:
			return nil, fmt.Errorf("%w: SkipArea wants SkipAreaRequest, got %T", datamodel.ErrInvalidDataType, fields)
		}
	default:
		return nil, datamodel.ErrUnsupportedCommand
	}
}

func (c *Cluster) operating() bool {
	return c.config.Operating != nil && c.config.Operating()
}

func (c *Cluster) supported(id uint32) bool {
	for _, a := range c.config.Areas {
		if a.AreaID == id {
			return true
		}
	}
	return false
}

// SelectAreas replaces the selection. Duplicate ids are dropped, keeping
// first occurrence order. An empty list selects no areas, meaning the
// whole map. A changed selection while operating requires
// FeatureSelectWhileRunning; re-selecting the current set always
// succeeds.
func (c *Cluster) SelectAreas(newAreas []uint32) SelectAreasResponse {
	areas := make([]uint32, 0, len(newAreas))
	for _, id := range newAreas {
		if !slices.Contains(areas, id) {
			areas = append(areas, id)
		}
	}
	for _, id := range areas {
		if !c.supported(id) {
			return c.refuseSelect(SelectAreasUnsupportedArea, fmt.Sprintf("area %d is not supported", id))
		}
	}

	c.mu.Lock()
	old := c.selected
	if sameSet(old, areas) {
		c.mu.Unlock()
		return SelectAreasResponse{Status: SelectAreasSuccess}
	}
	if c.operating() && c.config.FeatureMap&FeatureSelectWhileRunning == 0 {
		c.mu.Unlock()
		return c.refuseSelect(SelectAreasInvalidInMode, "cannot change the selection while operating")
	}
	c.selected = areas
	c.skipped = make(map[uint32]bool)
	c.mu.Unlock()

	if c.log != nil {
		c.log.Debugf("endpoint %d: selected areas %v", c.EndpointID(), areas)
	}
	c.AttributeChanged(AttrSelectedAreas, old, slices.Clone(areas))
	return SelectAreasResponse{Status: SelectAreasSuccess}
}

func (c *Cluster) refuseSelect(status SelectAreasStatus, text string) SelectAreasResponse {
	if c.log != nil {
		c.log.Infof("endpoint %d: SelectAreas refused: %s: %s", c.EndpointID(), status, text)
	}
	return SelectAreasResponse{Status: status, StatusText: text}
}

// SkipArea asks the device to stop serving an area and move on. It is
// valid only while operating, with a non-empty selection containing the
// area. Skipping the current area advances CurrentArea to the next
// unskipped selected area.
func (c *Cluster) SkipArea(area uint32) SkipAreaResponse {
	c.mu.Lock()
	switch {
	case len(c.selected) == 0:
		c.mu.Unlock()
		return SkipAreaResponse{Status: SkipAreaInvalidAreaList, StatusText: "no areas are selected"}
	case !c.operating():
		c.mu.Unlock()
		return SkipAreaResponse{Status: SkipAreaInvalidInMode, StatusText: "device is not operating"}
	case !slices.Contains(c.selected, area) || c.skipped[area]:
		c.mu.Unlock()
		return SkipAreaResponse{Status: SkipAreaInvalidSkippedArea, StatusText: fmt.Sprintf("area %d is not pending", area)}
	}

	c.skipped[area] = true
	var changes []change
	if c.current != nil && *c.current == area {
		changes = c.advanceLocked()
	}
	c.mu.Unlock()

	c.publish(changes)
	return SkipAreaResponse{Status: SkipAreaSuccess}
}

// SupportedAreas returns a copy of SupportedAreas.
func (c *Cluster) SupportedAreas() []Area {
	return slices.Clone(c.config.Areas)
}

// SelectedAreas returns a copy of SelectedAreas.
func (c *Cluster) SelectedAreas() []uint32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.selected)
}

// CurrentArea returns the area being served, or nil.
func (c *Cluster) CurrentArea() *uint32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copyArea(c.current)
}

// SetCurrentArea sets CurrentArea; nil clears it.
func (c *Cluster) SetCurrentArea(area *uint32) error {
	if area != nil && !c.supported(*area) {
		return fmt.Errorf("%w: %d", ErrUnknownArea, *area)
	}
	c.mu.Lock()
	changes := c.setCurrentLocked(copyArea(area))
	c.mu.Unlock()
	c.publish(changes)
	return nil
}

// Advance moves CurrentArea to the next area of the route that has not
// been skipped. The route is the selection, or every supported area when
// nothing is selected. Returns false, with CurrentArea cleared, once the
// route is exhausted.
func (c *Cluster) Advance() (uint32, bool) {
	c.mu.Lock()
	changes := c.advanceLocked()
	cur := copyArea(c.current)
	c.mu.Unlock()

	c.publish(changes)
	if cur == nil {
		return 0, false
	}
	return *cur, true
}

// ResetProgress clears CurrentArea and forgets skipped areas, keeping the
// selection.
func (c *Cluster) ResetProgress() {
	c.mu.Lock()
	c.skipped = make(map[uint32]bool)
	changes := c.setCurrentLocked(nil)
	c.mu.Unlock()
	c.publish(changes)
}

func (c *Cluster) route() []uint32 {
	if len(c.selected) > 0 {
		return c.selected
	}
	ids := make([]uint32, len(c.config.Areas))
	for i, a := range c.config.Areas {
		ids[i] = a.AreaID
	}
	return ids
}

func (c *Cluster) advanceLocked() []change {
	route := c.route()
	start := 0
	if c.current != nil {
		if i := slices.Index(route, *c.current); i >= 0 {
			start = i + 1
		}
	}
	for _, id := range route[start:] {
		if !c.skipped[id] {
			return c.setCurrentLocked(&id)
		}
	}
	return c.setCurrentLocked(nil)
}

type change struct {
	oldValue, newValue *uint32
}

func (c *Cluster) setCurrentLocked(area *uint32) []change {
	old := c.current
	if (old == nil && area == nil) || (old != nil && area != nil && *old == *area) {
		return nil
	}
	c.current = area
	return []change{{oldValue: copyArea(old), newValue: copyArea(area)}}
}

func (c *Cluster) publish(changes []change) {
	for _, ch := range changes {
		c.AttributeChanged(AttrCurrentArea, ch.oldValue, ch.newValue)
	}
}

func copyArea(a *uint32) *uint32 {
	if a == nil {
		return nil
	}
	v := *a
	return &v
}

func sameSet(a, b []uint32) bool {
	if len(a) != len(b) {
		return false
	}
	for _, id := range a {
		if !slices.Contains(b, id) {
			return false
		}
	}
	return true
}
