package datamodel

import (
	"testing"
)

func TestClusterBase_New(t *testing.T) {
	cb := NewClusterBase(ClusterOnOff, 1, 4)

	if cb.ID() != ClusterOnOff {
		t.Errorf("ID() = %v, want OnOff", cb.ID())
	}
	if cb.EndpointID() != 1 {
		t.Errorf("EndpointID() = %v, want 1", cb.EndpointID())
	}
	if cb.ClusterRevision() != 4 {
		t.Errorf("ClusterRevision() = %v, want 4", cb.ClusterRevision())
	}
	if cb.FeatureMap() != 0 {
		t.Errorf("FeatureMap() = %v, want 0", cb.FeatureMap())
	}
}

func TestClusterBase_HasFeature(t *testing.T) {
	cb := NewClusterBase(ClusterOnOff, 0, 1)
	cb.SetFeatureMap(0x0005)

	if !cb.HasFeature(0x0001) {
		t.Error("HasFeature(0x1) = false, want true")
	}
	if !cb.HasFeature(0x0005) {
		t.Error("HasFeature(0x5) = false, want true")
	}
	if cb.HasFeature(0x0002) {
		t.Error("HasFeature(0x2) = true, want false")
	}
}

func TestClusterBase_DataVersion(t *testing.T) {
	cb := NewClusterBase(ClusterOnOff, 0, 1)

	initial := cb.DataVersion()
	cb.IncrementDataVersion()
	if cb.DataVersion() != initial+1 {
		t.Errorf("After increment: DataVersion() = %v, want %v", cb.DataVersion(), initial+1)
	}

	cb.SetDataVersion(100)
	if cb.DataVersion() != 100 {
		t.Errorf("After set: DataVersion() = %v, want 100", cb.DataVersion())
	}
}

func TestClusterBase_Paths(t *testing.T) {
	cb := NewClusterBase(ClusterOnOff, 2, 1)

	if got := cb.Path(); got != (ConcreteClusterPath{Endpoint: 2, Cluster: ClusterOnOff}) {
		t.Errorf("Path() = %v", got)
	}
	if got := cb.AttributePath(5); got.Endpoint != 2 || got.Cluster != ClusterOnOff || got.Attribute != 5 {
		t.Errorf("AttributePath(5) = %v", got)
	}
	if got := cb.CommandPath(3); got.Endpoint != 2 || got.Cluster != ClusterOnOff || got.Command != 3 {
		t.Errorf("CommandPath(3) = %v", got)
	}
	if got := cb.AttributePath(5).String(); got != "2/0x0006/0x0005" {
		t.Errorf("AttributePath(5).String() = %q", got)
	}
}

func TestClusterBase_AttributeChanged(t *testing.T) {
	cb := NewClusterBase(ClusterOnOff, 3, 1)

	var got []AttributeChange
	cb.SetChangeListener(listenerFunc(func(c AttributeChange) {
		got = append(got, c)
	}))

	before := cb.DataVersion()
	cb.AttributeChanged(0, false, true)
	if cb.DataVersion() != before+1 {
		t.Errorf("DataVersion() = %v, want %v", cb.DataVersion(), before+1)
	}

	if len(got) != 1 {
		t.Fatalf("got %d notifications, want 1", len(got))
	}
	if got[0].Offline || got[0].OldValue != false || got[0].NewValue != true {
		t.Errorf("live change = %+v", got[0])
	}
	if got[0].Path != cb.AttributePath(0) {
		t.Errorf("Path = %v, want %v", got[0].Path, cb.AttributePath(0))
	}

	// Unbound listener drops notifications silently.
	cb.SetChangeListener(nil)
	cb.AttributeChanged(0, true, false)
	if len(got) != 1 {
		t.Errorf("notification delivered after unbinding")
	}
}

func TestClusterBase_ReadGlobalAttribute(t *testing.T) {
	cb := NewClusterBase(ClusterOnOff, 0, 4)
	cb.SetFeatureMap(0x0003)

	attrList := MergeAttributeLists([]AttributeEntry{{ID: 0}, {ID: 1}})
	cmdList := []CommandEntry{{ID: 0}, {ID: 1}}
	genCmdList := []CommandID{2, 3}

	t.Run("ClusterRevision", func(t *testing.T) {
		v, ok := cb.ReadGlobalAttribute(GlobalAttrClusterRevision, attrList, cmdList, genCmdList)
		if !ok {
			t.Fatal("ClusterRevision should be handled")
		}
		if v != uint16(4) {
			t.Errorf("ClusterRevision value = %v, want 4", v)
		}
	})

	t.Run("FeatureMap", func(t *testing.T) {
		v, ok := cb.ReadGlobalAttribute(GlobalAttrFeatureMap, attrList, cmdList, genCmdList)
		if !ok {
			t.Fatal("FeatureMap should be handled")
		}
		if v != uint32(0x0003) {
			t.Errorf("FeatureMap value = %v, want 0x0003", v)
		}
	})

	t.Run("AttributeList", func(t *testing.T) {
		v, ok := cb.ReadGlobalAttribute(GlobalAttrAttributeList, attrList, cmdList, genCmdList)
		if !ok {
			t.Fatal("AttributeList should be handled")
		}
		ids := v.([]AttributeID)
		if len(ids) != len(attrList) {
			t.Errorf("AttributeList len = %v, want %v", len(ids), len(attrList))
		}
	})

	t.Run("CommandLists", func(t *testing.T) {
		v, ok := cb.ReadGlobalAttribute(GlobalAttrAcceptedCommandList, attrList, cmdList, genCmdList)
		if !ok || len(v.([]CommandID)) != 2 {
			t.Errorf("AcceptedCommandList = %v, %v", v, ok)
		}
		v, ok = cb.ReadGlobalAttribute(GlobalAttrGeneratedCommandList, attrList, cmdList, genCmdList)
		if !ok || len(v.([]CommandID)) != 2 {
			t.Errorf("GeneratedCommandList = %v, %v", v, ok)
		}
	})

	t.Run("NonGlobal", func(t *testing.T) {
		if _, ok := cb.ReadGlobalAttribute(0, attrList, cmdList, genCmdList); ok {
			t.Error("Non-global attribute should not be handled")
		}
	})
}

func TestMergeAttributeLists(t *testing.T) {
	clusterAttrs := []AttributeEntry{
		NewReadOnlyAttribute(0, 0, PrivilegeView),
		NewReadWriteAttribute(1, 0, PrivilegeView, PrivilegeOperate),
	}

	merged := MergeAttributeLists(clusterAttrs)

	if len(merged) != len(clusterAttrs)+5 {
		t.Errorf("len(merged) = %v, want %v", len(merged), len(clusterAttrs)+5)
	}
	if merged[0].ID != 0 || merged[1].ID != 1 {
		t.Errorf("cluster attributes should come first, got %v, %v", merged[0].ID, merged[1].ID)
	}
	if merged[0].IsWritable() {
		t.Error("attribute 0 should be read-only")
	}
	if !merged[1].IsWritable() {
		t.Error("attribute 1 should be writable")
	}
	for _, e := range merged[2:] {
		if !IsGlobalAttribute(e.ID) {
			t.Errorf("0x%04X is not a global attribute", uint32(e.ID))
		}
	}
}

func TestFindAttributeAndCommand(t *testing.T) {
	attrs := []AttributeEntry{{ID: 0}, {ID: 10}, {ID: 20}}
	if found := FindAttribute(attrs, 10); found == nil || found.ID != 10 {
		t.Errorf("FindAttribute(10) = %v", found)
	}
	if FindAttribute(attrs, 99) != nil {
		t.Error("FindAttribute(99) = non-nil, want nil")
	}

	cmds := []CommandEntry{{ID: 0}, {ID: 10}}
	if found := FindCommand(cmds, 10); found == nil || found.ID != 10 {
		t.Errorf("FindCommand(10) = %v", found)
	}
	if FindCommand(cmds, 99) != nil {
		t.Error("FindCommand(99) = non-nil, want nil")
	}
}

func TestAttributeQuality_String(t *testing.T) {
	tests := []struct {
		q    AttributeQuality
		want string
	}{
		{0, "None"},
		{AttrQualityFixed, "F"},
		{AttrQualityNonVolatile | AttrQualityNullable, "NX"},
		{AttrQualityFixed | AttrQualityList, "F[List]"},
	}
	for _, tt := range tests {
		if got := tt.q.String(); got != tt.want {
			t.Errorf("AttributeQuality(%d).String() = %q, want %q", tt.q, got, tt.want)
		}
	}
}

type listenerFunc func(AttributeChange)

func (f listenerFunc) OnAttributeChanged(c AttributeChange) { f(c) }
