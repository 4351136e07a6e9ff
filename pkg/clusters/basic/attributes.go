package basic

import (
	"fmt"
	"strings"

	"github.com/backkem/matter-appliances/pkg/datamodel"
	"github.com/google/uuid"
)

// uniqueIDNamespace scopes name-based UniqueIDs to this simulator.
var uniqueIDNamespace = uuid.MustParse("6f3c2a4e-8d1b-5c7f-9a20-4b6e1d3f5a87")

// UniqueIDFromSerial derives a stable UniqueID from a serial number: the
// 32 hex digits of a version 5 UUID. The same serial always yields the
// same id, so a restarted simulator keeps its identities. An empty serial
// yields a random id.
func UniqueIDFromSerial(serial string) string {
	var u uuid.UUID
	if serial == "" {
		u = uuid.New()
	} else {
		u = uuid.NewSHA1(uniqueIDNamespace, []byte(serial))
	}
	return strings.ReplaceAll(u.String(), "-", "")
}

// productAppearance returns a copy of the ProductAppearance value.
func (c *Cluster) productAppearance() ProductAppearance {
	pa := *c.config.DeviceInfo.ProductAppearance
	if pa.PrimaryColor != nil {
		color := *pa.PrimaryColor
		pa.PrimaryColor = &color
	}
	return pa
}

// writeNodeLabel handles writing the NodeLabel attribute.
// Max length is 32 characters.
func (c *Cluster) writeNodeLabel(value any) error {
	label, ok := value.(string)
	if !ok {
		return fmt.Errorf("%w: NodeLabel wants string, got %T", datamodel.ErrInvalidDataType, value)
	}
	if len(label) > MaxNodeLabelLength {
		return fmt.Errorf("%w: NodeLabel longer than %d", datamodel.ErrConstraintError, MaxNodeLabelLength)
	}

	c.mu.Lock()
	old := c.nodeLabel
	c.nodeLabel = label
	c.mu.Unlock()

	if c.config.Storage != nil {
		if err := c.config.Storage.Store(storageKeyNodeLabel, []byte(label)); err != nil {
			return err
		}
	}

	if old != label {
		c.AttributeChanged(AttrNodeLabel, old, label)
	}
	return nil
}

func (c *Cluster) writeReachable(value any) error {
	reachable, ok := value.(bool)
	if !ok {
		return fmt.Errorf("%w: Reachable wants bool, got %T", datamodel.ErrInvalidDataType, value)
	}
	c.SetReachable(reachable)
	return nil
}

// SetReachable updates Reachable and emits ReachableChanged on a change.
func (c *Cluster) SetReachable(reachable bool) {
	c.mu.Lock()
	old := c.reachable
	c.reachable = reachable
	c.mu.Unlock()

	if old == reachable {
		return
	}
	if c.log != nil {
		c.log.Infof("endpoint %d: reachable %t", c.EndpointID(), reachable)
	}
	c.AttributeChanged(AttrReachable, old, reachable)
	c.EmitReachableChanged(reachable)
}
