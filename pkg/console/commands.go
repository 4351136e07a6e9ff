package console

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/backkem/matter-appliances/pkg/clusters/fancontrol"
	"github.com/backkem/matter-appliances/pkg/clusters/illuminance"
	"github.com/backkem/matter-appliances/pkg/clusters/microwave"
	"github.com/backkem/matter-appliances/pkg/clusters/modebase"
	"github.com/backkem/matter-appliances/pkg/clusters/onoff"
	"github.com/backkem/matter-appliances/pkg/clusters/opstate"
	"github.com/backkem/matter-appliances/pkg/clusters/servicearea"
	"github.com/backkem/matter-appliances/pkg/clusters/temperature"
	"github.com/backkem/matter-appliances/pkg/datamodel"
)

// Console errors.
var (
	ErrUsage      = errors.New("usage")
	ErrNoSuchKind = errors.New("endpoint has no such cluster")
)

func usage(format string) error {
	return fmt.Errorf("%w: %s", ErrUsage, format)
}

func parseEndpoint(s string) (datamodel.EndpointID, error) {
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid endpoint %q", s)
	}
	return datamodel.EndpointID(v), nil
}

func parseUint(s string, bits int) (uint64, error) {
	v, err := strconv.ParseUint(s, 0, bits)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return v, nil
}

// clusterOn returns the first cluster of type T on endpoint ep.
func clusterOn[T datamodel.Cluster](node *datamodel.BasicNode, ep datamodel.EndpointID) (T, error) {
	var zero T
	e := node.GetEndpoint(ep)
	if e == nil {
		return zero, fmt.Errorf("%w: %d", datamodel.ErrEndpointNotFound, ep)
	}
	for _, c := range e.GetClusters() {
		if t, ok := c.(T); ok {
			return t, nil
		}
	}
	return zero, fmt.Errorf("%w: endpoint %d, %T", ErrNoSuchKind, ep, zero)
}

func (c *Console) invoke(ctx context.Context, cl datamodel.Cluster, cmd datamodel.CommandID, fields any) (any, error) {
	return c.node.Invoke(ctx, datamodel.ConcreteCommandPath{
		Endpoint: cl.EndpointID(),
		Cluster:  cl.ID(),
		Command:  cmd,
	}, fields)
}

// formatValue prints nullable attributes as null or their value.
func formatValue(v any) string {
	if v == nil {
		return "null"
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return "null"
		}
		return fmt.Sprintf("%+v", rv.Elem().Interface())
	}
	return fmt.Sprintf("%+v", v)
}

func (c *Console) cmdList() {
	for _, dev := range c.fleet.Devices() {
		reach := "unreachable"
		if dev.Basic.Reachable() {
			reach = "reachable"
		}
		c.printf("  %3d  %-15s %-20q endpoints %v  %s\n",
			dev.Endpoint, dev.Kind, dev.Basic.NodeLabel(), dev.Endpoints(), reach)
	}
}

func (c *Console) cmdRead(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return usage("read <ep> <cluster> <attr>")
	}
	ep, err := parseEndpoint(args[0])
	if err != nil {
		return err
	}
	cluster, err := parseUint(args[1], 32)
	if err != nil {
		return err
	}
	attr, err := parseUint(args[2], 32)
	if err != nil {
		return err
	}

	path := datamodel.ConcreteAttributePath{
		Endpoint:  ep,
		Cluster:   datamodel.ClusterID(cluster),
		Attribute: datamodel.AttributeID(attr),
	}
	v, err := c.node.GetAttribute(ctx, path)
	if err != nil {
		return err
	}
	c.printf("%s = %s\n", path, formatValue(v))
	return nil
}

func (c *Console) modeClusters(ep datamodel.EndpointID) ([]*modebase.Cluster, error) {
	e := c.node.GetEndpoint(ep)
	if e == nil {
		return nil, fmt.Errorf("%w: %d", datamodel.ErrEndpointNotFound, ep)
	}
	var result []*modebase.Cluster
	for _, cl := range e.GetClusters() {
		if m, ok := cl.(*modebase.Cluster); ok {
			result = append(result, m)
		}
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("%w: endpoint %d has no mode cluster", ErrNoSuchKind, ep)
	}
	return result, nil
}

func (c *Console) cmdMode(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 3 {
		return usage("mode <ep> [cluster] [id]")
	}
	ep, err := parseEndpoint(args[0])
	if err != nil {
		return err
	}
	clusters, err := c.modeClusters(ep)
	if err != nil {
		return err
	}

	if len(args) == 1 {
		for _, m := range clusters {
			c.printf("  cluster 0x%04X\n", uint32(m.ID()))
			current := m.CurrentMode()
			for _, opt := range m.SupportedModes() {
				mark := " "
				if opt.Mode == current {
					mark = "*"
				}
				c.printf("   %s %3d  %s\n", mark, opt.Mode, opt.Label)
			}
		}
		return nil
	}

	target := clusters[0]
	idArg := args[1]
	if len(args) == 3 {
		id, err := parseUint(args[1], 32)
		if err != nil {
			return err
		}
		i := slices.IndexFunc(clusters, func(m *modebase.Cluster) bool { return m.ID() == datamodel.ClusterID(id) })
		if i < 0 {
			return fmt.Errorf("%w: mode cluster 0x%04X on endpoint %d", ErrNoSuchKind, id, ep)
		}
		target = clusters[i]
		idArg = args[2]
	}
	mode, err := parseUint(idArg, 8)
	if err != nil {
		return err
	}

	resp, err := c.invoke(ctx, target, modebase.CmdChangeToMode, modebase.ChangeToModeRequest{NewMode: uint8(mode)})
	if err != nil {
		return err
	}
	r := resp.(modebase.ChangeToModeResponse)
	if r.Status != modebase.StatusSuccess {
		c.printf("ChangeToMode: %s %s\n", r.Status, r.StatusText)
		return nil
	}
	c.printf("mode -> %d\n", target.CurrentMode())
	return nil
}

func (c *Console) cmdOnOff(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usage("onoff <ep> on|off|toggle")
	}
	ep, err := parseEndpoint(args[0])
	if err != nil {
		return err
	}
	cl, err := clusterOn[*onoff.Cluster](c.node, ep)
	if err != nil {
		return err
	}

	var cmd datamodel.CommandID
	switch strings.ToLower(args[1]) {
	case "on":
		cmd = onoff.CmdOn
	case "off":
		cmd = onoff.CmdOff
	case "toggle":
		cmd = onoff.CmdToggle
	default:
		return usage("onoff <ep> on|off|toggle")
	}
	if _, err := c.invoke(ctx, cl, cmd, nil); err != nil {
		return err
	}
	c.printf("endpoint %d on/off = %t\n", ep, cl.GetOnOff())
	return nil
}

var opCommands = map[string]datamodel.CommandID{
	"start":  opstate.CmdStart,
	"stop":   opstate.CmdStop,
	"pause":  opstate.CmdPause,
	"resume": opstate.CmdResume,
	"home":   opstate.CmdGoHome,
}

func (c *Console) cmdOp(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return usage("op <ep> [start|stop|pause|resume|home]")
	}
	ep, err := parseEndpoint(args[0])
	if err != nil {
		return err
	}
	cl, err := clusterOn[*opstate.Cluster](c.node, ep)
	if err != nil {
		return err
	}

	if len(args) == 2 {
		cmd, ok := opCommands[strings.ToLower(args[1])]
		if !ok {
			return usage("op <ep> [start|stop|pause|resume|home]")
		}
		resp, err := c.invoke(ctx, cl, cmd, nil)
		if err != nil {
			return err
		}
		r := resp.(opstate.OperationalCommandResponse)
		c.printf("response: %s\n", r.CommandResponseState.ID)
	}

	phase := "null"
	if p := cl.CurrentPhase(); p != nil {
		phase = strconv.Itoa(int(*p))
		if phases := cl.PhaseList(); int(*p) < len(phases) {
			phase += " (" + phases[*p] + ")"
		}
	}
	c.printf("state %s  phase %s  countdown %s\n", cl.State(), phase, formatValue(cl.CountdownTime()))
	if e := cl.Error(); e.ID != opstate.ErrorNoError {
		c.printf("error %s %s\n", e.ID, e.Label)
	}
	return nil
}

func (c *Console) cmdTemp(ctx context.Context, args []string) error {
	const use = "temp <ep> <celsius> | temp <ep> level <n>"
	if len(args) < 2 || len(args) > 3 {
		return usage(use)
	}
	ep, err := parseEndpoint(args[0])
	if err != nil {
		return err
	}
	cl, err := clusterOn[*temperature.Cluster](c.node, ep)
	if err != nil {
		return err
	}

	var req temperature.SetTemperatureRequest
	if len(args) == 3 {
		if !strings.EqualFold(args[1], "level") {
			return usage(use)
		}
		level, err := parseUint(args[2], 8)
		if err != nil {
			return err
		}
		l := uint8(level)
		req.TargetTemperatureLevel = &l
	} else {
		celsius, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid temperature %q", args[1])
		}
		hundredths := math.Round(celsius * 100)
		if hundredths < math.MinInt16 || hundredths > math.MaxInt16 {
			return fmt.Errorf("temperature %s out of range", args[1])
		}
		v := int16(hundredths)
		req.TargetTemperature = &v
	}

	if _, err := c.invoke(ctx, cl, temperature.CmdSetTemperature, req); err != nil {
		return err
	}
	if req.TargetTemperatureLevel != nil {
		c.printf("level -> %d\n", cl.SelectedLevel())
	} else {
		c.printf("setpoint -> %.2f°C\n", float64(cl.Setpoint())/100)
	}
	return nil
}

func (c *Console) cmdCook(ctx context.Context, args []string) error {
	const use = "cook <ep> [mode=N] [time=S] [power=P] [start]"
	if len(args) < 1 {
		return usage(use)
	}
	ep, err := parseEndpoint(args[0])
	if err != nil {
		return err
	}
	cl, err := clusterOn[*microwave.Cluster](c.node, ep)
	if err != nil {
		return err
	}

	var req microwave.SetCookingParametersRequest
	for _, arg := range args[1:] {
		if strings.EqualFold(arg, "start") {
			start := true
			req.StartAfterSetting = &start
			continue
		}
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return usage(use)
		}
		switch strings.ToLower(key) {
		case "mode":
			v, err := parseUint(value, 8)
			if err != nil {
				return err
			}
			m := uint8(v)
			req.CookMode = &m
		case "time":
			v, err := parseUint(value, 32)
			if err != nil {
				return err
			}
			t := uint32(v)
			req.CookTime = &t
		case "power":
			v, err := parseUint(value, 8)
			if err != nil {
				return err
			}
			p := uint8(v)
			req.PowerSetting = &p
		default:
			return usage(use)
		}
	}

	if _, err := c.invoke(ctx, cl, microwave.CmdSetCookingParameters, req); err != nil {
		return err
	}
	c.printf("cook time %ds\n", cl.CookTime())
	return nil
}

func (c *Console) cmdAddTime(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usage("addtime <ep> <seconds>")
	}
	ep, err := parseEndpoint(args[0])
	if err != nil {
		return err
	}
	cl, err := clusterOn[*microwave.Cluster](c.node, ep)
	if err != nil {
		return err
	}
	seconds, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid number %q", args[1])
	}

	if _, err := c.invoke(ctx, cl, microwave.CmdAddMoreTime, microwave.AddMoreTimeRequest{TimeToAdd: &seconds}); err != nil {
		return err
	}
	c.printf("cook time %ds\n", cl.CookTime())
	return nil
}

func (c *Console) cmdAreas(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return usage("areas <ep> [id...] | areas <ep> skip <id>")
	}
	ep, err := parseEndpoint(args[0])
	if err != nil {
		return err
	}
	cl, err := clusterOn[*servicearea.Cluster](c.node, ep)
	if err != nil {
		return err
	}

	switch {
	case len(args) == 3 && strings.EqualFold(args[1], "skip"):
		id, err := parseUint(args[2], 32)
		if err != nil {
			return err
		}
		resp, err := c.invoke(ctx, cl, servicearea.CmdSkipArea, servicearea.SkipAreaRequest{SkippedArea: uint32(id)})
		if err != nil {
			return err
		}
		r := resp.(servicearea.SkipAreaResponse)
		c.printf("SkipArea: %s %s\n", r.Status, r.StatusText)

	case len(args) > 1:
		ids := make([]uint32, 0, len(args)-1)
		for _, a := range args[1:] {
			id, err := parseUint(a, 32)
			if err != nil {
				return err
			}
			ids = append(ids, uint32(id))
		}
		resp, err := c.invoke(ctx, cl, servicearea.CmdSelectAreas, servicearea.SelectAreasRequest{NewAreas: ids})
		if err != nil {
			return err
		}
		r := resp.(servicearea.SelectAreasResponse)
		c.printf("SelectAreas: %s %s\n", r.Status, r.StatusText)
	}

	selected := cl.SelectedAreas()
	current := cl.CurrentArea()
	for _, a := range cl.SupportedAreas() {
		mark := " "
		if slices.Contains(selected, a.AreaID) {
			mark = "+"
		}
		if current != nil && *current == a.AreaID {
			mark = ">"
		}
		c.printf("   %s %3d  %s\n", mark, a.AreaID, a.Name)
	}
	return nil
}

func parseFanMode(s string) (fancontrol.FanMode, bool) {
	for m := fancontrol.FanModeOff; m <= fancontrol.FanModeSmart; m++ {
		if strings.EqualFold(m.String(), s) {
			return m, true
		}
	}
	return 0, false
}

func (c *Console) cmdFan(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usage("fan <ep> <mode>|<percent>")
	}
	ep, err := parseEndpoint(args[0])
	if err != nil {
		return err
	}
	cl, err := clusterOn[*fancontrol.Cluster](c.node, ep)
	if err != nil {
		return err
	}

	path := datamodel.ConcreteAttributePath{Endpoint: ep, Cluster: fancontrol.ClusterID}
	var value any
	if mode, ok := parseFanMode(args[1]); ok {
		path.Attribute = fancontrol.AttrFanMode
		value = mode
	} else {
		p, err := parseUint(args[1], 8)
		if err != nil {
			return usage("fan <ep> <mode>|<percent>")
		}
		path.Attribute = fancontrol.AttrPercentSetting
		value = uint8(p)
	}

	if err := c.node.SetAttribute(ctx, path, value); err != nil {
		return err
	}
	c.printf("fan %s  setting %s  current %d%%\n", cl.FanMode(), formatValue(cl.PercentSetting()), cl.PercentCurrent())
	return nil
}

func (c *Console) cmdLux(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return usage("lux <ep> [lux]")
	}
	ep, err := parseEndpoint(args[0])
	if err != nil {
		return err
	}
	cl, err := clusterOn[*illuminance.Cluster](c.node, ep)
	if err != nil {
		return err
	}

	if len(args) == 2 {
		lux, err := strconv.ParseFloat(args[1], 64)
		if err != nil || lux < 0 {
			return fmt.Errorf("invalid illuminance %q", args[1])
		}
		var encoded uint16
		c.node.Do(func() { encoded = cl.SetMeasuredLux(lux) })
		c.printf("MeasuredValue = %d\n", encoded)
	}

	if lux, ok := cl.MeasuredLux(); ok {
		c.printf("illuminance %.1f lx\n", lux)
	} else {
		c.println("illuminance unknown")
	}
	return nil
}

func (c *Console) cmdEvents(args []string) error {
	n := 10
	if len(args) == 1 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v <= 0 {
			return usage("events [n]")
		}
		n = v
	}

	history := c.fleet.Journal().History()
	if len(history) > n {
		history = history[len(history)-n:]
	}
	for _, r := range history {
		c.println(r)
	}
	if len(history) == 0 {
		c.println("no events")
	}
	return nil
}

func (c *Console) cmdSnapshot(args []string) error {
	if len(args) != 1 {
		return usage("snapshot <file>")
	}
	return c.writeSnapshot(args[0])
}

// changePrinter prints live attribute changes of the whole node.
type changePrinter struct {
	c *Console
}

func (p changePrinter) OnAttributeChanged(change datamodel.AttributeChange) {
	if change.Offline {
		return
	}
	p.c.printf("~ %s: %s -> %s\n", change.Path, formatValue(change.OldValue), formatValue(change.NewValue))
}

func (c *Console) setWatch(on bool) {
	c.mu.Lock()
	changed := c.watching != on
	c.watching = on
	c.mu.Unlock()
	if !changed {
		return
	}
	if on {
		c.node.SetAttributeChangeListener(changePrinter{c})
	} else {
		c.node.SetAttributeChangeListener(nil)
	}
}

func (c *Console) cmdWatch(args []string) error {
	switch {
	case len(args) == 0:
	case len(args) == 1 && args[0] == "on":
		c.setWatch(true)
	case len(args) == 1 && args[0] == "off":
		c.setWatch(false)
	default:
		return usage("watch [on|off]")
	}
	c.mu.Lock()
	on := c.watching
	c.mu.Unlock()
	if on {
		c.println("watch on")
	} else {
		c.println("watch off")
	}
	return nil
}

func (c *Console) cmdRemove(args []string) error {
	if len(args) != 1 {
		return usage("remove <ep>")
	}
	ep, err := parseEndpoint(args[0])
	if err != nil {
		return err
	}
	if err := c.fleet.RemoveDevice(ep); err != nil {
		return err
	}
	c.printf("removed device at endpoint %d\n", ep)
	return nil
}
