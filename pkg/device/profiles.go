package device

import (
	"github.com/backkem/matter-appliances/pkg/clusters/descriptor"
	"github.com/backkem/matter-appliances/pkg/clusters/fancontrol"
	"github.com/backkem/matter-appliances/pkg/clusters/illuminance"
	"github.com/backkem/matter-appliances/pkg/clusters/microwave"
	"github.com/backkem/matter-appliances/pkg/clusters/modebase"
	"github.com/backkem/matter-appliances/pkg/clusters/modes"
	"github.com/backkem/matter-appliances/pkg/clusters/onoff"
	"github.com/backkem/matter-appliances/pkg/clusters/opstate"
	"github.com/backkem/matter-appliances/pkg/clusters/servicearea"
	"github.com/backkem/matter-appliances/pkg/clusters/temperature"
	"github.com/backkem/matter-appliances/pkg/coupling"
	"github.com/backkem/matter-appliances/pkg/datamodel"
	"github.com/backkem/matter-appliances/pkg/sim"
)

// Run lengths in seconds.
const (
	ovenCycle       = 30 * 60
	dishwasherCycle = 90 * 60
	laundryCycle    = 60 * 60
)

var profiles = map[Kind]profile{
	KindOven:          {DeviceTypeOven, "Oven", 0x8001, buildOven},
	KindCooktop:       {DeviceTypeCooktop, "Cooktop", 0x8002, buildCooktop},
	KindDishwasher:    {DeviceTypeDishwasher, "Dishwasher", 0x8003, buildDishwasher},
	KindLaundryWasher: {DeviceTypeLaundryWasher, "Laundry Washer", 0x8004, buildLaundryWasher},
	KindRefrigerator:  {DeviceTypeRefrigerator, "Refrigerator", 0x8005, buildRefrigerator},
	KindWaterHeater:   {DeviceTypeWaterHeater, "Water Heater", 0x8006, buildWaterHeater},
	KindRVC:           {DeviceTypeRVC, "Robot Vacuum", 0x8007, buildRVC},
	KindMicrowave:     {DeviceTypeMicrowaveOven, "Microwave Oven", 0x8008, buildMicrowave},
	KindLightSensor:   {DeviceTypeLightSensor, "Light Sensor", 0x8009, buildLightSensor},
	KindFan:           {DeviceTypeFan, "Fan", 0x800A, buildFan},
}

func (b *builder) modeConfig(ep *datamodel.BasicEndpoint, cluster datamodel.ClusterID, initial uint8) modebase.Config {
	return modebase.Config{
		EndpointID:    ep.ID(),
		InitialMode:   initial,
		Storage:       b.store(b.offset(ep), cluster),
		LoggerFactory: b.env.LoggerFactory,
	}
}

func (b *builder) onOff(ep *datamodel.BasicEndpoint, features onoff.Feature) *onoff.Cluster {
	return onoff.New(onoff.Config{
		EndpointID:    ep.ID(),
		FeatureMap:    features,
		Storage:       b.store(b.offset(ep), onoff.ClusterID),
		InitialOnOff:  true,
		LoggerFactory: b.env.LoggerFactory,
	})
}

// cycle adds a countdown driven run to an operational state cluster.
func (b *builder) cycle(op *opstate.Cluster, duration func() uint32) {
	b.animate(sim.NewCycle(sim.CycleConfig{
		Operation:     op,
		Duration:      duration,
		Countdown:     true,
		TickSeconds:   b.env.TickSeconds,
		LoggerFactory: b.env.LoggerFactory,
	}))
}

func fixed(seconds uint32) func() uint32 {
	return func() uint32 { return seconds }
}

// Oven: two cavities, each with its own mode, operational state and
// temperature setpoint.
func buildOven(b *builder) error {
	for _, pos := range []uint8{descriptor.TagPositionTop, descriptor.TagPositionBottom} {
		cavity, err := b.child(DeviceTypeTemperatureControlledCabinet, semantic(descriptor.NamespacePosition, pos))
		if err != nil {
			return err
		}
		mode, err := modes.NewOvenMode(b.modeConfig(cavity, modes.OvenModeClusterID, 1))
		if err != nil {
			return err
		}
		op, err := opstate.NewOvenCavity(opstate.Config{
			EndpointID:    cavity.ID(),
			PhaseList:     []string{"pre-heating", "cooking", "cooling"},
			Countdown:     true,
			Events:        b.env.Events,
			LoggerFactory: b.env.LoggerFactory,
		})
		if err != nil {
			return err
		}
		temp, err := temperature.New(temperature.Config{
			EndpointID:      cavity.ID(),
			FeatureMap:      temperature.FeatureTemperatureNumber | temperature.FeatureTemperatureStep,
			MinTemperature:  5000,
			MaxTemperature:  30000,
			Step:            500,
			InitialSetpoint: 18000,
			LoggerFactory:   b.env.LoggerFactory,
		})
		if err != nil {
			return err
		}
		if err := b.add(cavity, mode, op, temp); err != nil {
			return err
		}
		b.cycle(op, fixed(ovenCycle))
	}
	return nil
}

// Cooktop: a master switch over two cook surfaces. Turning the cooktop
// off turns every surface off.
func buildCooktop(b *builder) error {
	if err := b.add(b.root, b.onOff(b.root, 0)); err != nil {
		return err
	}

	var surfaces []datamodel.EndpointID
	for _, pos := range []uint8{descriptor.TagPositionLeft, descriptor.TagPositionRight} {
		surface, err := b.child(DeviceTypeCookSurface, semantic(descriptor.NamespacePosition, pos))
		if err != nil {
			return err
		}
		temp, err := temperature.New(temperature.Config{
			EndpointID:      surface.ID(),
			FeatureMap:      temperature.FeatureTemperatureLevel,
			SupportedLevels: []string{"Low", "Medium", "High"},
			InitialLevel:    1,
			LoggerFactory:   b.env.LoggerFactory,
		})
		if err != nil {
			return err
		}
		if err := b.add(surface, b.onOff(surface, 0), temp); err != nil {
			return err
		}
		surfaces = append(surfaces, surface.ID())
	}

	top := b.root.ID()
	b.wire(func(r *coupling.Reactor) { r.CascadeOff(top, surfaces) })
	return nil
}

// washer builds the shared dishwasher / laundry washer layout: dead
// front on/off, a mode, a phased operation and a temperature level.
func (b *builder) washer(newMode func(modebase.Config) (*modebase.Cluster, error), modeCluster datamodel.ClusterID, phases, levels []string, seconds uint32) error {
	ep := b.root
	mode, err := newMode(b.modeConfig(ep, modeCluster, 2))
	if err != nil {
		return err
	}
	op, err := opstate.NewGeneric(opstate.Config{
		EndpointID:    ep.ID(),
		PhaseList:     phases,
		Countdown:     true,
		Events:        b.env.Events,
		LoggerFactory: b.env.LoggerFactory,
	})
	if err != nil {
		return err
	}
	temp, err := temperature.New(temperature.Config{
		EndpointID:      ep.ID(),
		FeatureMap:      temperature.FeatureTemperatureLevel,
		SupportedLevels: levels,
		InitialLevel:    1,
		LoggerFactory:   b.env.LoggerFactory,
	})
	if err != nil {
		return err
	}
	if err := b.add(ep, b.onOff(ep, onoff.FeatureDeadFrontBehavior), mode, op, temp); err != nil {
		return err
	}

	b.cycle(op, fixed(seconds))
	id := ep.ID()
	b.wire(func(r *coupling.Reactor) { r.DeadFront(id, mode) })
	return nil
}

func buildDishwasher(b *builder) error {
	return b.washer(modes.NewDishwasherMode, modes.DishwasherModeClusterID,
		[]string{"pre-soak", "main wash", "rinse", "drying"},
		[]string{"Eco", "Normal", "Intensive"},
		dishwasherCycle)
}

func buildLaundryWasher(b *builder) error {
	return b.washer(modes.NewLaundryWasherMode, modes.LaundryWasherModeClusterID,
		[]string{"pre-wash", "wash", "rinse", "spin"},
		[]string{"Cold", "Warm", "Hot"},
		laundryCycle)
}

// Refrigerator: a mode on the appliance, one cabinet per compartment
// with its own setpoint range.
func buildRefrigerator(b *builder) error {
	mode, err := modes.NewRefrigeratorMode(b.modeConfig(b.root, modes.RefrigeratorModeClusterID, 1))
	if err != nil {
		return err
	}
	if err := b.add(b.root, mode); err != nil {
		return err
	}

	cabinets := []struct {
		tag                uint8
		min, max, setpoint int16
	}{
		{descriptor.TagCabinetRefrigerator, 100, 700, 400},
		{descriptor.TagCabinetFreezer, -2400, -1500, -1800},
	}
	for _, cab := range cabinets {
		ep, err := b.child(DeviceTypeTemperatureControlledCabinet, semantic(descriptor.NamespaceRefrigeratorCabinet, cab.tag))
		if err != nil {
			return err
		}
		temp, err := temperature.New(temperature.Config{
			EndpointID:      ep.ID(),
			FeatureMap:      temperature.FeatureTemperatureNumber,
			MinTemperature:  cab.min,
			MaxTemperature:  cab.max,
			InitialSetpoint: cab.setpoint,
			LoggerFactory:   b.env.LoggerFactory,
		})
		if err != nil {
			return err
		}
		if err := b.add(ep, temp); err != nil {
			return err
		}
	}
	return nil
}

func buildWaterHeater(b *builder) error {
	mode, err := modes.NewWaterHeaterMode(b.modeConfig(b.root, modes.WaterHeaterModeClusterID, 2))
	if err != nil {
		return err
	}
	temp, err := temperature.New(temperature.Config{
		EndpointID:      b.root.ID(),
		FeatureMap:      temperature.FeatureTemperatureNumber | temperature.FeatureTemperatureStep,
		MinTemperature:  4000,
		MaxTemperature:  7500,
		Step:            100,
		InitialSetpoint: 5500,
		LoggerFactory:   b.env.LoggerFactory,
	})
	if err != nil {
		return err
	}
	return b.add(b.root, mode, temp)
}

// RVC: run and clean modes, RVC operational state and a service area
// map. The run mode and the operational state drive each other.
func buildRVC(b *builder) error {
	ep := b.root

	var link *coupling.RVC
	runCfg := b.modeConfig(ep, modes.RvcRunModeClusterID, 1)
	opCfg := opstate.Config{
		EndpointID:    ep.ID(),
		InitialState:  opstate.StateDocked,
		Events:        b.env.Events,
		LoggerFactory: b.env.LoggerFactory,
	}
	if b.env.Reactor != nil {
		link = b.env.Reactor.NewRVC()
		runCfg.OnModeChanged = link.OnRunModeChanged
		opCfg.OnCommand = link.OnOpStateCommand
	}

	run, err := modes.NewRvcRunMode(runCfg)
	if err != nil {
		return err
	}
	clean, err := modes.NewRvcCleanMode(b.modeConfig(ep, modes.RvcCleanModeClusterID, 1))
	if err != nil {
		return err
	}
	op, err := opstate.NewRVC(opCfg)
	if err != nil {
		return err
	}
	areas, err := servicearea.New(servicearea.Config{
		EndpointID: ep.ID(),
		FeatureMap: servicearea.FeatureSelectWhileRunning,
		Areas: []servicearea.Area{
			{AreaID: 1, Name: "Kitchen"},
			{AreaID: 2, Name: "Living Room"},
			{AreaID: 3, Name: "Bedroom"},
			{AreaID: 4, Name: "Hallway"},
		},
		Operating: func() bool {
			s := op.State()
			return s == opstate.StateRunning || s == opstate.StatePaused
		},
		LoggerFactory: b.env.LoggerFactory,
	})
	if err != nil {
		return err
	}
	if link != nil {
		link.Bind(run, op)
	}
	if err := b.add(ep, run, clean, op, areas); err != nil {
		return err
	}

	b.animate(sim.NewCleanRun(sim.CleanRunConfig{
		Operation:     op,
		Areas:         areas,
		RunModes:      run,
		TickSeconds:   b.env.TickSeconds,
		LoggerFactory: b.env.LoggerFactory,
	}))
	return nil
}

// Microwave: mode and power are set through SetCookingParameters; the
// run lasts CookTime, which AddMoreTime extends.
func buildMicrowave(b *builder) error {
	ep := b.root
	mode, err := modes.NewMicrowaveOvenMode(b.modeConfig(ep, modes.MicrowaveOvenModeClusterID, 1))
	if err != nil {
		return err
	}
	op, err := opstate.NewGeneric(opstate.Config{
		EndpointID:    ep.ID(),
		Countdown:     true,
		Events:        b.env.Events,
		LoggerFactory: b.env.LoggerFactory,
	})
	if err != nil {
		return err
	}
	control, err := microwave.New(microwave.Config{
		EndpointID:    ep.ID(),
		FeatureMap:    microwave.FeaturePowerAsNumber | microwave.FeaturePowerNumberLimits,
		WattRating:    900,
		Modes:         mode,
		Operation:     op,
		LoggerFactory: b.env.LoggerFactory,
	})
	if err != nil {
		return err
	}
	if err := b.add(ep, mode, op, control); err != nil {
		return err
	}
	b.cycle(op, control.CookTime)
	return nil
}

func buildLightSensor(b *builder) error {
	sensorType := illuminance.SensorPhotodiode
	sensor, err := illuminance.New(illuminance.Config{
		EndpointID:    b.root.ID(),
		MinLux:        1,
		MaxLux:        10000,
		Tolerance:     100,
		SensorType:    &sensorType,
		LoggerFactory: b.env.LoggerFactory,
	})
	if err != nil {
		return err
	}
	if err := b.add(b.root, sensor); err != nil {
		return err
	}
	b.animate(sim.NewLuxWalk(sim.LuxWalkConfig{Sensor: sensor, Min: 5, Max: 2000, Start: 300}))
	return nil
}

func buildFan(b *builder) error {
	fan := fancontrol.New(fancontrol.Config{
		EndpointID:    b.root.ID(),
		FeatureMap:    fancontrol.FeatureMultiSpeed | fancontrol.FeatureAuto | fancontrol.FeatureStep,
		Sequence:      fancontrol.SequenceOffLowMedHighAuto,
		LoggerFactory: b.env.LoggerFactory,
	})
	if err := b.add(b.root, fan); err != nil {
		return err
	}
	b.animate(sim.NewFanSpin(fan))
	return nil
}
