package servicearea

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/backkem/matter-appliances/pkg/datamodel"
)

type fixture struct {
	c         *Cluster
	operating bool
}

func newFixture(t *testing.T, features Feature) *fixture {
	t.Helper()
	f := &fixture{}
	c, err := New(Config{
		EndpointID: 4,
		FeatureMap: features,
		Areas: []Area{
			{AreaID: 1, Name: "Kitchen"},
			{AreaID: 2, Name: "Living Room"},
			{AreaID: 3, Name: "Bedroom"},
		},
		Operating: func() bool { return f.operating },
	})
	if err != nil {
		t.Fatal(err)
	}
	f.c = c
	return f
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{}); !errors.Is(err, ErrNoAreas) {
		t.Errorf("no areas: %v", err)
	}
	if _, err := New(Config{Areas: []Area{{AreaID: 1}, {AreaID: 1}}}); !errors.Is(err, ErrDuplicateArea) {
		t.Errorf("duplicate: %v", err)
	}
}

func TestSelectAreas(t *testing.T) {
	tests := []struct {
		name         string
		features     Feature
		operating    bool
		areas        []uint32
		wantStatus   SelectAreasStatus
		wantSelected []uint32
	}{
		{"select", 0, false, []uint32{2, 1}, SelectAreasSuccess, []uint32{2, 1}},
		{"duplicates dropped", 0, false, []uint32{3, 3, 1, 3}, SelectAreasSuccess, []uint32{3, 1}},
		{"empty clears", 0, false, nil, SelectAreasSuccess, nil},
		{"unsupported", 0, false, []uint32{1, 9}, SelectAreasUnsupportedArea, nil},
		{"while operating", 0, true, []uint32{1}, SelectAreasInvalidInMode, nil},
		{"while operating with feature", FeatureSelectWhileRunning, true, []uint32{1}, SelectAreasSuccess, []uint32{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.features)
			f.operating = tt.operating
			resp := f.c.SelectAreas(tt.areas)
			if resp.Status != tt.wantStatus {
				t.Fatalf("Status = %s (%q), want %s", resp.Status, resp.StatusText, tt.wantStatus)
			}
			if got := f.c.SelectedAreas(); !slices.Equal(got, tt.wantSelected) {
				t.Errorf("SelectedAreas = %v, want %v", got, tt.wantSelected)
			}
		})
	}
}

func TestSelectAreas_SameSetWhileOperating(t *testing.T) {
	f := newFixture(t, 0)
	f.c.SelectAreas([]uint32{1, 2})
	f.operating = true
	if resp := f.c.SelectAreas([]uint32{2, 1}); resp.Status != SelectAreasSuccess {
		t.Errorf("Status = %s, want Success", resp.Status)
	}
}

func TestSkipArea(t *testing.T) {
	f := newFixture(t, 0)

	if resp := f.c.SkipArea(1); resp.Status != SkipAreaInvalidAreaList {
		t.Errorf("empty selection: %s", resp.Status)
	}
	f.c.SelectAreas([]uint32{1, 2, 3})
	if resp := f.c.SkipArea(1); resp.Status != SkipAreaInvalidInMode {
		t.Errorf("not operating: %s", resp.Status)
	}

	f.operating = true
	if _, ok := f.c.Advance(); !ok {
		t.Fatal("Advance found no area")
	}
	if resp := f.c.SkipArea(9); resp.Status != SkipAreaInvalidSkippedArea {
		t.Errorf("unknown area: %s", resp.Status)
	}
	if resp := f.c.SkipArea(1); resp.Status != SkipAreaSuccess {
		t.Fatalf("skip current: %s", resp.Status)
	}
	if cur := f.c.CurrentArea(); cur == nil || *cur != 2 {
		t.Errorf("CurrentArea = %v, want 2", cur)
	}
	if resp := f.c.SkipArea(1); resp.Status != SkipAreaInvalidSkippedArea {
		t.Errorf("skip twice: %s", resp.Status)
	}

	// Skipping a pending area removes it from the walk.
	if resp := f.c.SkipArea(3); resp.Status != SkipAreaSuccess {
		t.Fatalf("skip pending: %s", resp.Status)
	}
	if _, ok := f.c.Advance(); ok {
		t.Errorf("Advance past the last pending area returned an area")
	}
	if f.c.CurrentArea() != nil {
		t.Error("CurrentArea not cleared at end of route")
	}
}

func TestAdvance_WholeMapWithoutSelection(t *testing.T) {
	f := newFixture(t, 0)
	var walked []uint32
	for {
		id, ok := f.c.Advance()
		if !ok {
			break
		}
		walked = append(walked, id)
	}
	if !slices.Equal(walked, []uint32{1, 2, 3}) {
		t.Errorf("walked %v, want [1 2 3]", walked)
	}

	f.c.ResetProgress()
	if id, ok := f.c.Advance(); !ok || id != 1 {
		t.Errorf("after reset Advance() = %d, %v", id, ok)
	}
}

func TestSetCurrentArea(t *testing.T) {
	f := newFixture(t, 0)
	area := uint32(2)
	if err := f.c.SetCurrentArea(&area); err != nil {
		t.Fatal(err)
	}
	bad := uint32(7)
	if err := f.c.SetCurrentArea(&bad); !errors.Is(err, ErrUnknownArea) {
		t.Errorf("unknown area: %v", err)
	}
	if err := f.c.SetCurrentArea(nil); err != nil || f.c.CurrentArea() != nil {
		t.Errorf("clear: %v, %v", err, f.c.CurrentArea())
	}
}

func TestInvokeCommand(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	resp, err := f.c.InvokeCommand(ctx, datamodel.InvokeRequest{Path: f.c.CommandPath(CmdSelectAreas)}, &SelectAreasRequest{NewAreas: []uint32{3}})
	if err != nil {
		t.Fatal(err)
	}
	if r := resp.(SelectAreasResponse); r.Status != SelectAreasSuccess {
		t.Errorf("Status = %s", r.Status)
	}
	if _, err := f.c.InvokeCommand(ctx, datamodel.InvokeRequest{Path: f.c.CommandPath(CmdSkipArea)}, uint32(3)); !errors.Is(err, datamodel.ErrInvalidDataType) {
		t.Errorf("bad fields: %v", err)
	}

	v, err := f.c.ReadAttribute(ctx, datamodel.ReadAttributeRequest{Path: f.c.AttributePath(AttrSupportedMaps)})
	if !errors.Is(err, datamodel.ErrUnsupportedAttribute) {
		t.Errorf("SupportedMaps without feature = %v, %v", v, err)
	}
}
