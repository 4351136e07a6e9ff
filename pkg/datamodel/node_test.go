package datamodel

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestBasicNode_AddEndpoint(t *testing.T) {
	node := NewNode()

	if err := node.AddEndpoint(NewEndpoint(0)); err != nil {
		t.Fatalf("AddEndpoint(0) failed: %v", err)
	}
	if err := node.AddEndpoint(NewEndpoint(1)); err != nil {
		t.Fatalf("AddEndpoint(1) failed: %v", err)
	}
	if err := node.AddEndpoint(NewEndpoint(0)); !errors.Is(err, ErrEndpointExists) {
		t.Errorf("AddEndpoint(duplicate) = %v, want ErrEndpointExists", err)
	}
	if node.EndpointCount() != 2 {
		t.Errorf("EndpointCount() = %v, want 2", node.EndpointCount())
	}
}

func TestBasicNode_AddEndpointTree(t *testing.T) {
	node := NewNode()

	parent := NewEndpoint(2)
	_ = parent.AddChild(NewEndpoint(3))
	_ = parent.AddChild(NewEndpoint(4))

	if err := node.AddEndpoint(parent); err != nil {
		t.Fatalf("AddEndpoint(tree) failed: %v", err)
	}

	want := []EndpointID{2, 3, 4}
	got := node.GetEndpoints()
	if len(got) != len(want) {
		t.Fatalf("GetEndpoints() len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID() != want[i] {
			t.Errorf("endpoints[%d] = %d, want %d", i, got[i].ID(), want[i])
		}
	}

	// A subtree colliding with any registered ID is rejected as a whole.
	clash := NewEndpoint(10)
	_ = clash.AddChild(NewEndpoint(3))
	if err := node.AddEndpoint(clash); !errors.Is(err, ErrEndpointExists) {
		t.Fatalf("AddEndpoint(clash) = %v, want ErrEndpointExists", err)
	}
	if node.HasEndpoint(10) {
		t.Error("partial registration of rejected subtree")
	}
}

func TestBasicNode_RemoveEndpointRemovesSubtree(t *testing.T) {
	node := NewNode()

	parent := NewEndpoint(2)
	child := NewEndpoint(3)
	_ = parent.AddChild(child)
	c := newTestCluster(3)
	child.AddCluster(c)
	node.AddEndpoint(NewEndpoint(0))
	node.AddEndpoint(parent)

	calls := 0
	node.SubscribeAttribute(c.AttributePath(testAttrValue), func(_, _ any, _ ChangeContext) { calls++ })

	if err := node.RemoveEndpoint(2); err != nil {
		t.Fatalf("RemoveEndpoint(2) failed: %v", err)
	}
	if node.HasEndpoint(2) || node.HasEndpoint(3) {
		t.Error("subtree still registered after removing parent")
	}
	if node.EndpointCount() != 1 {
		t.Errorf("EndpointCount() = %d, want 1", node.EndpointCount())
	}

	c.set(5)
	if calls != 0 {
		t.Error("removed cluster still notifies subscribers")
	}

	if err := node.RemoveEndpoint(99); err != ErrEndpointNotFound {
		t.Errorf("RemoveEndpoint(99) = %v, want ErrEndpointNotFound", err)
	}
}

func TestBasicNode_GetCluster(t *testing.T) {
	node := NewNode()

	ep := NewEndpoint(0)
	ep.AddCluster(&mockCluster{id: ClusterOnOff})
	node.AddEndpoint(ep)

	if node.GetCluster(0, ClusterOnOff) == nil {
		t.Fatal("GetCluster(0, OnOff) = nil, want non-nil")
	}
	if node.GetCluster(99, ClusterOnOff) != nil {
		t.Error("GetCluster(99, OnOff) = non-nil, want nil")
	}
	if node.GetCluster(0, 9999) != nil {
		t.Error("GetCluster(0, 9999) = non-nil, want nil")
	}
}

func TestBasicNode_SubscribeAttribute(t *testing.T) {
	node, c := newTestNode(t)
	path := c.AttributePath(testAttrValue)

	type call struct {
		old, new any
		offline  bool
	}
	var calls []call
	cancel := node.SubscribeAttribute(path, func(oldValue, newValue any, ctx ChangeContext) {
		calls = append(calls, call{oldValue, newValue, ctx.Offline})
	})

	if err := node.SetAttribute(context.Background(), path, 7); err != nil {
		t.Fatalf("SetAttribute failed: %v", err)
	}
	if len(calls) != 1 || calls[0].old != 0 || calls[0].new != 7 || calls[0].offline {
		t.Fatalf("calls = %+v, want one live 0→7 change", calls)
	}

	cancel()
	cancel()
	node.SetAttribute(context.Background(), path, 8)
	if len(calls) != 1 {
		t.Errorf("callback invoked after cancel")
	}
}

func TestBasicNode_NodeListener(t *testing.T) {
	node, c := newTestNode(t)

	var seen []ConcreteAttributePath
	node.SetAttributeChangeListener(listenerFunc(func(ch AttributeChange) {
		seen = append(seen, ch.Path)
	}))

	c.set(3)
	if len(seen) != 1 || seen[0] != c.AttributePath(testAttrValue) {
		t.Errorf("node listener saw %v", seen)
	}
}

func TestBasicNode_Replay(t *testing.T) {
	node, c := newTestNode(t)
	c.set(4)

	var got []ChangeContext
	var values []any
	node.SubscribeAttribute(c.AttributePath(testAttrValue), func(_, newValue any, ctx ChangeContext) {
		got = append(got, ctx)
		values = append(values, newValue)
	})

	if err := node.Replay(context.Background()); err != nil {
		t.Fatalf("Replay failed: %v", err)
	}
	if len(got) != 1 || !got[0].Offline {
		t.Fatalf("Replay delivered %+v, want one offline notification", got)
	}
	if values[0] != 4 {
		t.Errorf("replayed value = %v, want 4", values[0])
	}
}

func TestBasicNode_GetAttribute(t *testing.T) {
	node, c := newTestNode(t)
	c.set(9)

	v, err := node.GetAttribute(context.Background(), c.AttributePath(testAttrValue))
	if err != nil {
		t.Fatalf("GetAttribute failed: %v", err)
	}
	if v != 9 {
		t.Errorf("GetAttribute = %v, want 9", v)
	}

	_, err = node.GetAttribute(context.Background(), ConcreteAttributePath{Endpoint: 42, Cluster: testClusterID})
	if !errors.Is(err, ErrEndpointNotFound) {
		t.Errorf("GetAttribute(unknown endpoint) = %v, want ErrEndpointNotFound", err)
	}
	_, err = node.GetAttribute(context.Background(), ConcreteAttributePath{Endpoint: 1, Cluster: 0x9999})
	if !errors.Is(err, ErrClusterNotFound) {
		t.Errorf("GetAttribute(unknown cluster) = %v, want ErrClusterNotFound", err)
	}
}

func TestBasicNode_Invoke(t *testing.T) {
	node, c := newTestNode(t)

	resp, err := node.Invoke(context.Background(), c.CommandPath(testCmdAdd), 5)
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if resp != 5 {
		t.Errorf("Invoke response = %v, want 5", resp)
	}

	_, err = node.Invoke(context.Background(), c.CommandPath(0x42), nil)
	if !errors.Is(err, ErrUnsupportedCommand) {
		t.Errorf("Invoke(unknown command) = %v, want ErrUnsupportedCommand", err)
	}
}

func TestBasicNode_DispatchSerializes(t *testing.T) {
	node, c := newTestNode(t)

	const goroutines = 8
	const iterations = 200

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				node.Invoke(context.Background(), c.CommandPath(testCmdAdd), 1)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				node.Do(func() { c.addUnlocked(1) })
			}
		}()
	}
	wg.Wait()

	if got := c.get(); got != 2*goroutines*iterations {
		t.Errorf("value = %d, want %d", got, 2*goroutines*iterations)
	}
}

// Test helpers

const (
	testClusterID  ClusterID   = 0xFFF1
	testAttrValue  AttributeID = 0x0000
	testCmdAdd     CommandID   = 0x00
	testRevision   uint16      = 1
	testEndpointID EndpointID  = 1
)

func newTestNode(t *testing.T) (*BasicNode, *testCluster) {
	t.Helper()
	node := NewNode()
	ep := NewEndpoint(testEndpointID)
	c := newTestCluster(testEndpointID)
	if err := ep.AddCluster(c); err != nil {
		t.Fatalf("AddCluster failed: %v", err)
	}
	if err := node.AddEndpoint(ep); err != nil {
		t.Fatalf("AddEndpoint failed: %v", err)
	}
	return node, c
}

// testCluster holds one integer attribute. The Add command and Do-based
// increments deliberately read-modify-write without holding mu across the
// whole update, so lost updates show up unless dispatch serializes them.
type testCluster struct {
	*ClusterBase
	mu    sync.Mutex
	value int
}

func newTestCluster(ep EndpointID) *testCluster {
	return &testCluster{ClusterBase: NewClusterBase(testClusterID, ep, testRevision)}
}

func (c *testCluster) get() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

func (c *testCluster) set(v int) {
	c.mu.Lock()
	old := c.value
	c.value = v
	c.mu.Unlock()
	c.AttributeChanged(testAttrValue, old, v)
}

func (c *testCluster) addUnlocked(delta int) {
	c.set(c.get() + delta)
}

func (c *testCluster) AttributeList() []AttributeEntry {
	return MergeAttributeLists([]AttributeEntry{
		NewReadWriteAttribute(testAttrValue, 0, PrivilegeView, PrivilegeOperate),
	})
}

func (c *testCluster) AcceptedCommandList() []CommandEntry {
	return []CommandEntry{NewCommandEntry(testCmdAdd, 0, PrivilegeOperate)}
}

func (c *testCluster) GeneratedCommandList() []CommandID { return nil }

func (c *testCluster) ReadAttribute(_ context.Context, req ReadAttributeRequest) (any, error) {
	if req.Path.Attribute != testAttrValue {
		return nil, ErrUnsupportedAttribute
	}
	return c.get(), nil
}

func (c *testCluster) WriteAttribute(_ context.Context, req WriteAttributeRequest, value any) error {
	v, ok := value.(int)
	if !ok {
		return ErrInvalidDataType
	}
	c.set(v)
	return nil
}

func (c *testCluster) InvokeCommand(_ context.Context, req InvokeRequest, fields any) (any, error) {
	delta, ok := fields.(int)
	if !ok {
		return nil, ErrInvalidCommand
	}
	c.addUnlocked(delta)
	return delta, nil
}

type mockCluster struct {
	id         ClusterID
	endpointID EndpointID
}

func (m *mockCluster) ID() ClusterID                       { return m.id }
func (m *mockCluster) EndpointID() EndpointID              { return m.endpointID }
func (m *mockCluster) DataVersion() DataVersion            { return 1 }
func (m *mockCluster) ClusterRevision() uint16             { return 1 }
func (m *mockCluster) FeatureMap() uint32                  { return 0 }
func (m *mockCluster) AttributeList() []AttributeEntry     { return nil }
func (m *mockCluster) AcceptedCommandList() []CommandEntry { return nil }
func (m *mockCluster) GeneratedCommandList() []CommandID   { return nil }

func (m *mockCluster) ReadAttribute(_ context.Context, _ ReadAttributeRequest) (any, error) {
	return nil, nil
}

func (m *mockCluster) WriteAttribute(_ context.Context, _ WriteAttributeRequest, _ any) error {
	return nil
}

func (m *mockCluster) InvokeCommand(_ context.Context, _ InvokeRequest, _ any) (any, error) {
	return nil, nil
}
