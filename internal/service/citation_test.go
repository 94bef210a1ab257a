package service

import (
	"testing"

	"github.com/fiqhlab/shariah-qa/internal/model"
)

func TestMapCitations_NoMarkers(t *testing.T) {
	got := MapCitations("Tawarruq is permitted under certain conditions.", 3, nil)
	if len(got) != 0 {
		t.Errorf("expected empty map, got %v", got)
	}
}

func TestMapCitations_Positional(t *testing.T) {
	got := MapCitations("Permitted [1], with conditions [3].", 3, nil)
	if len(got) != 2 {
		t.Fatalf("expected 2 citations, got %d", len(got))
	}
	if c := got[1]; !c.Resolved || c.RefIndex != 0 {
		t.Errorf("[1]: expected index 0, got %+v", c)
	}
	if c := got[3]; !c.Resolved || c.RefIndex != 2 {
		t.Errorf("[3]: expected index 2, got %+v", c)
	}
}

func TestMapCitations_OutOfRangeUnresolved(t *testing.T) {
	got := MapCitations("See [4] and [0].", 3, nil)
	if c := got[4]; c.Resolved || c.RefIndex != -1 {
		t.Errorf("[4]: expected unresolved, got %+v", c)
	}
	if c := got[0]; c.Resolved || c.RefIndex != -1 {
		t.Errorf("[0]: expected unresolved, got %+v", c)
	}
}

func TestMapCitations_RepeatedMarkerOnce(t *testing.T) {
	got := MapCitations("First [2], again [2], and again [2].", 3, nil)
	if len(got) != 1 {
		t.Errorf("expected one entry for repeated marker, got %d", len(got))
	}
}

func TestMapCitations_Override(t *testing.T) {
	got := MapCitations("See [1] and [2].", 3, map[int]int{1: 2})
	if c := got[1]; !c.Resolved || c.RefIndex != 2 {
		t.Errorf("[1]: override should map to index 2, got %+v", c)
	}
	// Markers the override does not cover stay positional.
	if c := got[2]; !c.Resolved || c.RefIndex != 1 {
		t.Errorf("[2]: expected positional index 1, got %+v", c)
	}
}

func TestMapCitations_OverrideOutOfRangeUnresolved(t *testing.T) {
	got := MapCitations("See [1].", 3, map[int]int{1: 7})
	if c := got[1]; c.Resolved || c.RefIndex != -1 {
		t.Errorf("out-of-range override must be unresolved, got %+v", c)
	}
}

func TestMarkCited(t *testing.T) {
	refs := []model.Reference{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	citations := model.CitationMap{
		1: {RefIndex: 0, Resolved: true},
		4: {RefIndex: -1, Resolved: false},
	}
	MarkCited(refs, citations)
	if !refs[0].Cited {
		t.Error("reference 0 should be cited")
	}
	if refs[1].Cited || refs[2].Cited {
		t.Error("uncited references must stay unmarked")
	}
}
