package datamodel

// Global attribute IDs are mandatory attributes present on every cluster instance.
const (
	// GlobalAttrClusterRevision (0xFFFD) indicates the cluster revision.
	GlobalAttrClusterRevision AttributeID = 0xFFFD

	// GlobalAttrFeatureMap (0xFFFC) indicates supported optional features.
	GlobalAttrFeatureMap AttributeID = 0xFFFC

	// GlobalAttrAttributeList (0xFFFB) lists all supported attribute IDs.
	GlobalAttrAttributeList AttributeID = 0xFFFB

	// GlobalAttrAcceptedCommandList (0xFFF9) lists accepted command IDs.
	GlobalAttrAcceptedCommandList AttributeID = 0xFFF9

	// GlobalAttrGeneratedCommandList (0xFFF8) lists generated command IDs.
	GlobalAttrGeneratedCommandList AttributeID = 0xFFF8
)

// IsGlobalAttribute returns true if the attribute ID is a global attribute.
func IsGlobalAttribute(id AttributeID) bool {
	return id >= GlobalAttrGeneratedCommandList && id <= GlobalAttrClusterRevision
}

// GlobalAttributeEntries returns the standard global attribute entries.
// These must be present on every cluster instance.
func GlobalAttributeEntries() []AttributeEntry {
	viewPriv := PrivilegeView
	return []AttributeEntry{
		{
			ID:            GlobalAttrClusterRevision,
			Quality:       AttrQualityFixed,
			ReadPrivilege: &viewPriv,
		},
		{
			ID:            GlobalAttrFeatureMap,
			Quality:       AttrQualityFixed,
			ReadPrivilege: &viewPriv,
		},
		{
			ID:            GlobalAttrAttributeList,
			Quality:       AttrQualityFixed | AttrQualityList,
			ReadPrivilege: &viewPriv,
		},
		{
			ID:            GlobalAttrAcceptedCommandList,
			Quality:       AttrQualityFixed | AttrQualityList,
			ReadPrivilege: &viewPriv,
		},
		{
			ID:            GlobalAttrGeneratedCommandList,
			Quality:       AttrQualityFixed | AttrQualityList,
			ReadPrivilege: &viewPriv,
		},
	}
}

// Well-known endpoint IDs
const (
	// EndpointRoot is the root endpoint (always 0).
	EndpointRoot EndpointID = 0

	// EndpointAggregator hosts the bridged appliances.
	EndpointAggregator EndpointID = 1
)

// Well-known utility cluster IDs
const (
	// ClusterOnOff is the On/Off cluster ID.
	ClusterOnOff ClusterID = 0x0006

	// ClusterDescriptor is the Descriptor cluster ID.
	ClusterDescriptor ClusterID = 0x001D

	// ClusterBridgedDeviceBasicInformation is the Bridged Device Basic Information cluster ID.
	ClusterBridgedDeviceBasicInformation ClusterID = 0x0039
)

// Well-known device type IDs
const (
	DeviceTypeRootNode                     DeviceTypeID = 0x0016
	DeviceTypeAggregator                   DeviceTypeID = 0x000E
	DeviceTypeBridgedNode                  DeviceTypeID = 0x0013
	DeviceTypeRefrigerator                 DeviceTypeID = 0x0070
	DeviceTypeTemperatureControlledCabinet DeviceTypeID = 0x0071
	DeviceTypeLaundryWasher                DeviceTypeID = 0x0073
	DeviceTypeRoboticVacuumCleaner         DeviceTypeID = 0x0074
	DeviceTypeDishwasher                   DeviceTypeID = 0x0075
	DeviceTypeCookSurface                  DeviceTypeID = 0x0077
	DeviceTypeCooktop                      DeviceTypeID = 0x0078
	DeviceTypeMicrowaveOven                DeviceTypeID = 0x0079
	DeviceTypeOven                         DeviceTypeID = 0x007B
	DeviceTypeFan                          DeviceTypeID = 0x002B
	DeviceTypeLightSensor                  DeviceTypeID = 0x0106
	DeviceTypeWaterHeater                  DeviceTypeID = 0x050F
)
