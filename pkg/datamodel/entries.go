package datamodel

// AttributeEntry describes an attribute's metadata.
type AttributeEntry struct {
	// ID is the attribute identifier.
	ID AttributeID

	// Quality contains the attribute quality flags.
	Quality AttributeQuality

	// ReadPrivilege is the minimum privilege required to read this attribute.
	// nil indicates the attribute is not readable.
	ReadPrivilege *Privilege

	// WritePrivilege is the minimum privilege required to write this attribute.
	// nil indicates the attribute is not writable by clients.
	WritePrivilege *Privilege
}

// IsReadable returns true if the attribute can be read.
func (a *AttributeEntry) IsReadable() bool {
	return a.ReadPrivilege != nil
}

// IsWritable returns true if the attribute can be written by clients.
func (a *AttributeEntry) IsWritable() bool {
	return a.WritePrivilege != nil
}

// HasQuality returns true if the attribute has the specified quality flag(s).
func (a *AttributeEntry) HasQuality(q AttributeQuality) bool {
	return a.Quality&q != 0
}

// IsList returns true if this is a list attribute.
func (a *AttributeEntry) IsList() bool {
	return a.HasQuality(AttrQualityList)
}

// IsNullable returns true if the attribute may hold null.
func (a *AttributeEntry) IsNullable() bool {
	return a.HasQuality(AttrQualityNullable)
}

// CommandEntry describes a command's metadata.
type CommandEntry struct {
	// ID is the command identifier.
	ID CommandID

	// Quality contains the command quality flags.
	Quality CommandQuality

	// InvokePrivilege is the minimum privilege required to invoke this command.
	InvokePrivilege Privilege
}

// HasQuality returns true if the command has the specified quality flag(s).
func (c *CommandEntry) HasQuality(q CommandQuality) bool {
	return c.Quality&q != 0
}

// EventEntry describes an event's metadata.
type EventEntry struct {
	// ID is the event identifier.
	ID EventID

	// Priority is the default priority for this event.
	Priority EventPriority

	// ReadPrivilege is the minimum privilege required to read this event.
	ReadPrivilege Privilege
}

// EndpointEntry describes an endpoint's metadata.
type EndpointEntry struct {
	// ID is the endpoint identifier.
	ID EndpointID

	// ParentID is the parent endpoint ID, nil for top-level endpoints.
	ParentID *EndpointID

	// CompositionPattern defines how child endpoints are organized.
	CompositionPattern EndpointComposition
}

// DeviceTypeEntry describes a device type present on an endpoint.
type DeviceTypeEntry struct {
	// DeviceTypeID is the device type identifier.
	DeviceTypeID DeviceTypeID

	// Revision is the device type revision.
	Revision uint8
}

// NewReadOnlyAttribute creates a read-only attribute entry.
func NewReadOnlyAttribute(id AttributeID, quality AttributeQuality, readPriv Privilege) AttributeEntry {
	return AttributeEntry{
		ID:            id,
		Quality:       quality,
		ReadPrivilege: &readPriv,
	}
}

// NewReadWriteAttribute creates a read-write attribute entry.
func NewReadWriteAttribute(id AttributeID, quality AttributeQuality, readPriv, writePriv Privilege) AttributeEntry {
	return AttributeEntry{
		ID:             id,
		Quality:        quality,
		ReadPrivilege:  &readPriv,
		WritePrivilege: &writePriv,
	}
}

// NewCommandEntry creates a new command entry.
func NewCommandEntry(id CommandID, quality CommandQuality, invokePriv Privilege) CommandEntry {
	return CommandEntry{
		ID:              id,
		Quality:         quality,
		InvokePrivilege: invokePriv,
	}
}

// NewEventEntry creates a new event entry.
func NewEventEntry(id EventID, priority EventPriority, readPriv Privilege) EventEntry {
	return EventEntry{
		ID:            id,
		Priority:      priority,
		ReadPrivilege: readPriv,
	}
}
