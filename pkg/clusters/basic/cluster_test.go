package basic

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/backkem/matter-appliances/pkg/datamodel"
)

const (
	testVendorName      = "TestVendor"
	testProductName     = "Dishwasher"
	testSerialNumber    = "SN123456"
	testVendorID        = uint16(0xFFF1)
	testProductID       = uint16(0x8001)
	testSoftwareVersion = uint32(0x01020304)
	testPartNumber      = "PART123"
)

var errNotFound = errors.New("not found")

// mockStorage implements Storage for testing.
type mockStorage struct {
	data map[string][]byte
}

func newMockStorage() *mockStorage {
	return &mockStorage{data: make(map[string][]byte)}
}

func (m *mockStorage) Load(key string) ([]byte, error) {
	v, ok := m.data[key]
	if !ok {
		return nil, errNotFound
	}
	return v, nil
}

func (m *mockStorage) Store(key string, value []byte) error {
	m.data[key] = append([]byte(nil), value...)
	return nil
}

// mockEventPublisher implements EventPublisher for testing.
type mockEventPublisher struct {
	events []any
	ids    []datamodel.EventID
}

func (m *mockEventPublisher) PublishEvent(endpoint datamodel.EndpointID, cluster datamodel.ClusterID, eventID datamodel.EventID, priority datamodel.EventPriority, data any) (datamodel.EventNumber, error) {
	m.events = append(m.events, data)
	m.ids = append(m.ids, eventID)
	return datamodel.EventNumber(len(m.events)), nil
}

func createTestCluster(storage Storage, pub datamodel.EventPublisher) *Cluster {
	part := testPartNumber
	return New(Config{
		EndpointID: 3,
		DeviceInfo: DeviceInfo{
			VendorName:      testVendorName,
			VendorID:        testVendorID,
			ProductName:     testProductName,
			ProductID:       testProductID,
			SoftwareVersion: testSoftwareVersion,
			SerialNumber:    testSerialNumber,
			PartNumber:      &part,
		},
		InitialNodeLabel: "Kitchen Dishwasher",
		Storage:          storage,
		EventPublisher:   pub,
	})
}

func read(t *testing.T, c *Cluster, attr datamodel.AttributeID) any {
	t.Helper()
	v, err := c.ReadAttribute(context.Background(), datamodel.ReadAttributeRequest{Path: c.AttributePath(attr)})
	if err != nil {
		t.Fatalf("read 0x%04X: %v", uint32(attr), err)
	}
	return v
}

func TestReadAttributes(t *testing.T) {
	c := createTestCluster(nil, nil)
	tests := []struct {
		attr datamodel.AttributeID
		want any
	}{
		{AttrVendorName, testVendorName},
		{AttrVendorID, testVendorID},
		{AttrProductName, testProductName},
		{AttrProductID, testProductID},
		{AttrSoftwareVersion, testSoftwareVersion},
		{AttrSerialNumber, testSerialNumber},
		{AttrPartNumber, testPartNumber},
		{AttrNodeLabel, "Kitchen Dishwasher"},
		{AttrReachable, true},
	}
	for _, tt := range tests {
		if got := read(t, c, tt.attr); got != tt.want {
			t.Errorf("attribute 0x%04X = %v, want %v", uint32(tt.attr), got, tt.want)
		}
	}

	if _, err := c.ReadAttribute(context.Background(), datamodel.ReadAttributeRequest{Path: c.AttributePath(AttrProductURL)}); !errors.Is(err, datamodel.ErrUnsupportedAttribute) {
		t.Errorf("ProductURL without value: %v", err)
	}
}

func TestUniqueIDFromSerial(t *testing.T) {
	a := UniqueIDFromSerial("SN-1")
	b := UniqueIDFromSerial("SN-1")
	other := UniqueIDFromSerial("SN-2")

	if a != b {
		t.Errorf("same serial produced %q and %q", a, b)
	}
	if a == other {
		t.Error("different serials produced the same id")
	}
	if len(a) != 32 || strings.Contains(a, "-") {
		t.Errorf("UniqueID %q is not 32 hex digits", a)
	}
	if UniqueIDFromSerial("") == UniqueIDFromSerial("") {
		t.Error("empty serial ids are not random")
	}

	c := createTestCluster(nil, nil)
	if got := read(t, c, AttrUniqueID); got != UniqueIDFromSerial(testSerialNumber) {
		t.Errorf("UniqueID = %v", got)
	}
}

func TestWriteNodeLabel(t *testing.T) {
	storage := newMockStorage()
	c := createTestCluster(storage, nil)
	ctx := context.Background()
	req := datamodel.WriteAttributeRequest{Path: c.AttributePath(AttrNodeLabel)}

	if err := c.WriteAttribute(ctx, req, "Upstairs"); err != nil {
		t.Fatal(err)
	}
	if c.NodeLabel() != "Upstairs" {
		t.Errorf("NodeLabel = %q", c.NodeLabel())
	}
	if err := c.WriteAttribute(ctx, req, strings.Repeat("x", MaxNodeLabelLength+1)); !errors.Is(err, datamodel.ErrConstraintError) {
		t.Errorf("long label: %v", err)
	}
	if err := c.WriteAttribute(ctx, req, 42); !errors.Is(err, datamodel.ErrInvalidDataType) {
		t.Errorf("int label: %v", err)
	}

	// Reload from storage.
	restarted := createTestCluster(storage, nil)
	if restarted.NodeLabel() != "Upstairs" {
		t.Errorf("persisted NodeLabel = %q", restarted.NodeLabel())
	}
}

func TestReachable(t *testing.T) {
	pub := &mockEventPublisher{}
	c := createTestCluster(nil, pub)
	ctx := context.Background()

	client := datamodel.WriteAttributeRequest{Path: c.AttributePath(AttrReachable)}
	if err := c.WriteAttribute(ctx, client, false); !errors.Is(err, datamodel.ErrUnsupportedWrite) {
		t.Errorf("client write: %v", err)
	}

	internal := datamodel.WriteAttributeRequest{Path: c.AttributePath(AttrReachable), OperationFlags: datamodel.OpFlagInternal}
	if err := c.WriteAttribute(ctx, internal, false); err != nil {
		t.Fatal(err)
	}
	if c.Reachable() {
		t.Error("still reachable")
	}
	c.SetReachable(false)

	if len(pub.events) != 1 || pub.ids[0] != EventReachableChanged {
		t.Fatalf("events = %v", pub.ids)
	}
	if ev := pub.events[0].(ReachableChangedEvent); ev.ReachableNewValue {
		t.Errorf("event = %+v", ev)
	}
}

func TestLifecycleEvents(t *testing.T) {
	pub := &mockEventPublisher{}
	c := createTestCluster(nil, pub)

	if _, err := c.EmitStartUp(); err != nil {
		t.Fatal(err)
	}
	if _, err := c.EmitShutDown(); err != nil {
		t.Fatal(err)
	}
	if len(pub.ids) != 2 || pub.ids[0] != EventStartUp || pub.ids[1] != EventShutDown {
		t.Fatalf("events = %v", pub.ids)
	}
	if ev := pub.events[0].(StartUpEvent); ev.SoftwareVersion != testSoftwareVersion {
		t.Errorf("StartUp = %+v", ev)
	}

	unbound := createTestCluster(nil, nil)
	if n, err := unbound.EmitStartUp(); n != 0 || err != nil {
		t.Errorf("unbound EmitStartUp = %d, %v", n, err)
	}
}
