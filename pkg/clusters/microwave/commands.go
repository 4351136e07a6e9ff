package microwave

import (
	"context"
	"fmt"

	"github.com/backkem/matter-appliances/pkg/clusters/opstate"
	"github.com/backkem/matter-appliances/pkg/clusters/params"
	"github.com/backkem/matter-appliances/pkg/datamodel"
)

// SetCookingParametersRequest represents the SetCookingParameters command.
// Every field is optional.
type SetCookingParametersRequest struct {
	CookMode          *uint8
	CookTime          *uint32
	PowerSetting      *uint8
	WattSettingIndex  *uint8
	StartAfterSetting *bool
}

// AddMoreTimeRequest represents the AddMoreTime command. TimeToAdd is
// signed so that negative deltas can be refused.
type AddMoreTimeRequest struct {
	TimeToAdd *int64
}

// InvokeCommand implements datamodel.Cluster.
func (c *Cluster) InvokeCommand(ctx context.Context, req datamodel.InvokeRequest, fields any) (any, error) {
	switch req.Path.Command {
	case CmdSetCookingParameters:
		var r SetCookingParametersRequest
		switch v := fields.(type) {
		case nil:
		case SetCookingParametersRequest:
			r = v
		case *SetCookingParametersRequest:
			if v != nil {
				r = *v
			}
		default:
			return nil, fmt.Errorf("%w: SetCookingParameters wants SetCookingParametersRequest, got %T", datamodel.ErrInvalidDataType, fields)
		}
		return nil, c.SetCookingParameters(r)

	case CmdAddMoreTime:
		switch v := fields.(type) {
		case AddMoreTimeRequest:
			return nil, c.AddMoreTime(v.TimeToAdd)
		case *AddMoreTimeRequest:
			if v == nil {
				return nil, datamodel.ErrInvalidCommand
			}
			return nil, c.AddMoreTime(v.TimeToAdd)
		case nil:
			return nil, datamodel.ErrInvalidCommand
		default:
			return nil, fmt.Errorf("%w: AddMoreTime wants AddMoreTimeRequest, got %T", datamodel.ErrInvalidDataType, fields)
		}

	default:
		return nil, datamodel.ErrUnsupportedCommand
	}
}

// SetCookingParameters applies a cooking parameter set. It is refused
// unless the oven is stopped. Fields are resolved independently: mode
// defaults to the Normal mode, cook time to 30 s, power to the maximum and
// the watt index to the highest rating.
func (c *Cluster) SetCookingParameters(req SetCookingParametersRequest) error {
	if op := c.config.Operation; op != nil && op.State() != opstate.StateStopped {
		return fmt.Errorf("%w: oven is %s", datamodel.ErrInvalidInState, op.State())
	}

	r := params.NewResolver(c.log)

	if c.config.Modes != nil {
		supported := c.config.Modes.SupportedModes()
		member := make(map[uint8]bool, len(supported))
		for _, m := range supported {
			member[m.Mode] = true
		}
		mode := params.Resolve(r, params.Field[uint8]{
			Name:    "CookMode",
			Range:   params.Range[uint8]{Min: 0, Max: 0xFF},
			Default: defaultCookMode(supported),
			Valid:   func(v uint8) bool { return member[v] },
		}, req.CookMode)
		if err := c.config.Modes.ForceMode(mode); err != nil {
			return err
		}
	}

	c.setCookTime(params.Resolve(r, params.Field[uint32]{
		Name:    "CookTime",
		Range:   params.Range[uint32]{Min: 1, Max: c.config.MaxCookTime},
		Default: DefaultCookTime,
	}, req.CookTime))

	if c.config.FeatureMap&FeaturePowerAsNumber != 0 {
		minPower, step := c.config.MinPower, c.config.PowerStep
		c.setPower(params.Resolve(r, params.Field[uint8]{
			Name:    "PowerSetting",
			Range:   params.Range[uint8]{Min: minPower, Max: c.config.MaxPower},
			Default: c.config.MaxPower,
			Valid:   func(v uint8) bool { return (v-minPower)%step == 0 },
		}, req.PowerSetting))
	}

	if c.config.FeatureMap&FeaturePowerInWatts != 0 {
		last := uint8(len(c.config.SupportedWatts) - 1)
		c.setWattIndex(params.Resolve(r, params.Field[uint8]{
			Name:    "WattSettingIndex",
			Range:   params.Range[uint8]{Min: 0, Max: last},
			Default: last,
		}, req.WattSettingIndex))
	}

	if c.log != nil {
		c.log.Debugf("endpoint %d: cooking parameters set, cook time %d s, rejected %v", c.EndpointID(), c.CookTime(), r.Rejected())
	}

	if req.StartAfterSetting != nil && *req.StartAfterSetting && c.config.Operation != nil {
		if resp := c.config.Operation.Start(); !resp.Succeeded() && c.log != nil {
			c.log.Warnf("endpoint %d: start after setting refused: %s", c.EndpointID(), resp.CommandResponseState.ID)
		}
	}
	return nil
}

// AddMoreTime adds seconds to the cook time. A missing delta is an
// invalid command; a negative one, or one that would pass MaxCookTime,
// is a constraint error. Neither changes the cook time.
func (c *Cluster) AddMoreTime(seconds *int64) error {
	if seconds == nil {
		return fmt.Errorf("%w: TimeToAdd is required", datamodel.ErrInvalidCommand)
	}
	delta := *seconds
	if delta < 0 {
		return fmt.Errorf("%w: TimeToAdd %d is negative", datamodel.ErrConstraintError, delta)
	}

	c.mu.Lock()
	old := c.cookTime
	next := int64(old) + delta
	if next > int64(c.config.MaxCookTime) {
		c.mu.Unlock()
		return fmt.Errorf("%w: cook time %d exceeds %d", datamodel.ErrConstraintError, next, c.config.MaxCookTime)
	}
	c.cookTime = uint32(next)
	c.mu.Unlock()

	if old != uint32(next) {
		c.AttributeChanged(AttrCookTime, old, uint32(next))
	}
	return nil
}
