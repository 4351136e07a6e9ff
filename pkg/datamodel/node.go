package datamodel

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
)

// BasicNode is an in-memory Node that also acts as the host platform for
// the device layer: endpoint registration, attribute get/set/subscribe and
// command dispatch.
//
// All mutating entry points (Invoke, SetAttribute, Replay, Do) are
// serialized by a single dispatch lock, so a command, its coupled side
// effects and any timer callback never interleave. Code running inside a
// dispatch (subscription callbacks, hooks) must mutate clusters directly
// instead of re-entering those entry points.
type BasicNode struct {
	mu        sync.RWMutex
	endpoints map[EndpointID]Endpoint
	order     []EndpointID // Preserve registration order
	listener  AttributeChangeListener

	subsMu  sync.Mutex
	subs    map[ConcreteAttributePath][]*subscription
	nextSub uint64

	dispatch sync.Mutex
}

type subscription struct {
	id uint64
	cb AttributeCallback
}

// changeNotifier is implemented by clusters embedding ClusterBase.
type changeNotifier interface {
	SetChangeListener(l AttributeChangeListener)
}

// NewNode creates a new empty node.
func NewNode() *BasicNode {
	return &BasicNode{
		endpoints: make(map[EndpointID]Endpoint),
		subs:      make(map[ConcreteAttributePath][]*subscription),
	}
}

// AddEndpoint registers an endpoint together with all of its descendants.
// Registration is all-or-nothing: if any endpoint ID in the subtree is
// already taken, nothing is registered and ErrEndpointExists is returned.
func (n *BasicNode) AddEndpoint(ep Endpoint) error {
	var tree []Endpoint
	Walk(ep, func(e Endpoint) { tree = append(tree, e) })

	n.mu.Lock()
	seen := make(map[EndpointID]bool, len(tree))
	for _, e := range tree {
		if _, exists := n.endpoints[e.ID()]; exists || seen[e.ID()] {
			n.mu.Unlock()
			return fmt.Errorf("%w: %d", ErrEndpointExists, e.ID())
		}
		seen[e.ID()] = true
	}
	for _, e := range tree {
		n.endpoints[e.ID()] = e
		n.order = append(n.order, e.ID())
	}
	n.mu.Unlock()

	for _, e := range tree {
		for _, c := range e.GetClusters() {
			if cn, ok := c.(changeNotifier); ok {
				cn.SetChangeListener(n)
			}
		}
	}
	return nil
}

// RemoveEndpoint removes an endpoint and its whole subtree. Subscriptions
// on removed endpoints are dropped.
// Returns ErrEndpointNotFound if the endpoint doesn't exist.
func (n *BasicNode) RemoveEndpoint(id EndpointID) error {
	n.mu.Lock()
	ep, exists := n.endpoints[id]
	if !exists {
		n.mu.Unlock()
		return ErrEndpointNotFound
	}

	removed := make(map[EndpointID]bool)
	var tree []Endpoint
	Walk(ep, func(e Endpoint) {
		tree = append(tree, e)
		removed[e.ID()] = true
		delete(n.endpoints, e.ID())
	})

	order := n.order[:0]
	for _, epID := range n.order {
		if !removed[epID] {
			order = append(order, epID)
		}
	}
	n.order = order
	n.mu.Unlock()

	for _, e := range tree {
		for _, c := range e.GetClusters() {
			if cn, ok := c.(changeNotifier); ok {
				cn.SetChangeListener(nil)
			}
		}
	}

	n.subsMu.Lock()
	for path := range n.subs {
		if removed[path.Endpoint] {
			delete(n.subs, path)
		}
	}
	n.subsMu.Unlock()
	return nil
}

// GetEndpoint returns the endpoint with the given ID, or nil if not found.
func (n *BasicNode) GetEndpoint(id EndpointID) Endpoint {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.endpoints[id]
}

// GetEndpoints returns all endpoints in registration order.
func (n *BasicNode) GetEndpoints() []Endpoint {
	n.mu.RLock()
	defer n.mu.RUnlock()

	result := make([]Endpoint, 0, len(n.order))
	for _, id := range n.order {
		if ep, ok := n.endpoints[id]; ok {
			result = append(result, ep)
		}
	}
	return result
}

// EndpointCount returns the number of registered endpoints.
func (n *BasicNode) EndpointCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.endpoints)
}

// HasEndpoint returns true if an endpoint with the given ID exists.
func (n *BasicNode) HasEndpoint(id EndpointID) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	_, exists := n.endpoints[id]
	return exists
}

// GetCluster is a convenience method to get a cluster by endpoint and cluster ID.
// Returns nil if the endpoint or cluster doesn't exist.
func (n *BasicNode) GetCluster(endpointID EndpointID, clusterID ClusterID) Cluster {
	ep := n.GetEndpoint(endpointID)
	if ep == nil {
		return nil
	}
	return ep.GetCluster(clusterID)
}

func (n *BasicNode) lookup(endpointID EndpointID, clusterID ClusterID) (Cluster, error) {
	ep := n.GetEndpoint(endpointID)
	if ep == nil {
		return nil, fmt.Errorf("%w: %d", ErrEndpointNotFound, endpointID)
	}
	c := ep.GetCluster(clusterID)
	if c == nil {
		return nil, fmt.Errorf("%w: 0x%04X on endpoint %d", ErrClusterNotFound, uint32(clusterID), endpointID)
	}
	return c, nil
}

// SetAttributeChangeListener sets a listener that observes every attribute
// change on the node, in addition to path subscriptions.
func (n *BasicNode) SetAttributeChangeListener(listener AttributeChangeListener) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.listener = listener
}

// OnAttributeChanged fans a change out to the node listener and to the
// subscribers of its path. Clusters reach it through ClusterBase.
func (n *BasicNode) OnAttributeChanged(change AttributeChange) {
	n.mu.RLock()
	listener := n.listener
	n.mu.RUnlock()

	if listener != nil {
		listener.OnAttributeChanged(change)
	}

	n.subsMu.Lock()
	subs := append([]*subscription{}, n.subs[change.Path]...)
	n.subsMu.Unlock()

	ctx := ChangeContext{Offline: change.Offline}
	for _, s := range subs {
		s.cb(change.OldValue, change.NewValue, ctx)
	}
}

// SubscribeAttribute registers cb for changes of path. The returned function
// cancels the subscription and is safe to call more than once.
func (n *BasicNode) SubscribeAttribute(path ConcreteAttributePath, cb AttributeCallback) func() {
	n.subsMu.Lock()
	n.nextSub++
	sub := &subscription{id: n.nextSub, cb: cb}
	n.subs[path] = append(n.subs[path], sub)
	n.subsMu.Unlock()

	return func() {
		n.subsMu.Lock()
		defer n.subsMu.Unlock()
		list := n.subs[path]
		for i, s := range list {
			if s.id == sub.id {
				n.subs[path] = append(list[:i:i], list[i+1:]...)
				break
			}
		}
		if len(n.subs[path]) == 0 {
			delete(n.subs, path)
		}
	}
}

// GetAttribute reads an attribute value.
func (n *BasicNode) GetAttribute(ctx context.Context, path ConcreteAttributePath) (any, error) {
	c, err := n.lookup(path.Endpoint, path.Cluster)
	if err != nil {
		return nil, err
	}
	return c.ReadAttribute(ctx, ReadAttributeRequest{
		Path:           path,
		OperationFlags: OpFlagInternal,
	})
}

// SetAttribute writes an attribute value as an internal operation.
func (n *BasicNode) SetAttribute(ctx context.Context, path ConcreteAttributePath, value any) error {
	c, err := n.lookup(path.Endpoint, path.Cluster)
	if err != nil {
		return err
	}

	n.dispatch.Lock()
	defer n.dispatch.Unlock()
	return c.WriteAttribute(ctx, WriteAttributeRequest{
		Path:           path,
		OperationFlags: OpFlagInternal,
	}, value)
}

// Invoke dispatches a client command to the addressed cluster.
func (n *BasicNode) Invoke(ctx context.Context, path ConcreteCommandPath, fields any) (any, error) {
	c, err := n.lookup(path.Endpoint, path.Cluster)
	if err != nil {
		return nil, err
	}
	if FindCommand(c.AcceptedCommandList(), path.Command) == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCommand, path)
	}

	n.dispatch.Lock()
	defer n.dispatch.Unlock()
	return c.InvokeCommand(ctx, InvokeRequest{Path: path}, fields)
}

// Do runs fn under the dispatch lock. Timers and other background
// producers use it to mutate cluster state without racing commands.
func (n *BasicNode) Do(fn func()) {
	n.dispatch.Lock()
	defer n.dispatch.Unlock()
	fn()
}

// Replay delivers the current value of every subscribed attribute to its
// subscribers with Offline set. Call it once after restoring persisted
// state so observers can sync without triggering side effects.
func (n *BasicNode) Replay(ctx context.Context) error {
	n.subsMu.Lock()
	paths := make([]ConcreteAttributePath, 0, len(n.subs))
	for path := range n.subs {
		paths = append(paths, path)
	}
	n.subsMu.Unlock()
	slices.SortFunc(paths, func(a, b ConcreteAttributePath) int {
		return cmp.Or(
			cmp.Compare(a.Endpoint, b.Endpoint),
			cmp.Compare(a.Cluster, b.Cluster),
			cmp.Compare(a.Attribute, b.Attribute),
		)
	})

	n.dispatch.Lock()
	defer n.dispatch.Unlock()
	for _, path := range paths {
		v, err := n.GetAttribute(ctx, path)
		if err != nil {
			return fmt.Errorf("replay %s: %w", path, err)
		}
		n.OnAttributeChanged(AttributeChange{Path: path, OldValue: v, NewValue: v, Offline: true})
	}
	return nil
}

// Verify BasicNode implements the interfaces.
var (
	_ Platform                = (*BasicNode)(nil)
	_ AttributeChangeListener = (*BasicNode)(nil)
)
