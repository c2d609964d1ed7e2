package orderbook

import "testing"

func TestLevelTreeUpsertFindDelete(t *testing.T) {
	tree := NewLevelTree()
	lvl := tree.Upsert(100)
	if lvl == nil {
		t.Fatal("Upsert returned nil")
	}
	if got := tree.Find(100); got != lvl {
		t.Error("Find did not return the same level")
	}

	tree.Upsert(200)
	if tree.Min().Price != 100 {
		t.Error("expected min=100")
	}
	if tree.Max().Price != 200 {
		t.Error("expected max=200")
	}

	if !tree.Delete(100) {
		t.Error("Delete failed")
	}
	if tree.Find(100) != nil {
		t.Error("expected level 100 to be gone")
	}
}

func TestLevelTreeDeleteNonExistent(t *testing.T) {
	tree := NewLevelTree()
	if tree.Delete(123) {
		t.Error("expected false when deleting non-existent level")
	}
}

func TestLevelTreeEmptyMinMax(t *testing.T) {
	tree := NewLevelTree()
	if tree.Min() != nil || tree.Max() != nil {
		t.Error("expected nil for min/max on empty tree")
	}
}

func TestLevelTreeUpsertDuplicate(t *testing.T) {
	tree := NewLevelTree()
	lvl1 := tree.Upsert(150)
	lvl2 := tree.Upsert(150)
	if lvl1 != lvl2 {
		t.Error("Upsert should return the same level for a duplicate price")
	}
	if tree.Size() != 1 {
		t.Errorf("expected size 1, got %d", tree.Size())
	}
}

func TestLevelTreeOrderedIteration(t *testing.T) {
	tree := NewLevelTree()
	// insertion order chosen to force rotations on both sides
	prices := []int64{500, 100, 900, 300, 700, 200, 800, 400, 600, 50, 950, 150}
	for _, p := range prices {
		tree.Upsert(p)
	}
	if tree.Size() != len(prices) {
		t.Fatalf("expected size %d, got %d", len(prices), tree.Size())
	}

	var asc []int64
	tree.ForEachAscending(func(lvl *PriceLevel) bool {
		asc = append(asc, lvl.Price)
		return true
	})
	if len(asc) != len(prices) {
		t.Fatalf("ascending walk visited %d levels, want %d", len(asc), len(prices))
	}
	for i := 1; i < len(asc); i++ {
		if asc[i-1] >= asc[i] {
			t.Fatalf("ascending walk out of order: %v", asc)
		}
	}

	var desc []int64
	tree.ForEachDescending(func(lvl *PriceLevel) bool {
		desc = append(desc, lvl.Price)
		return true
	})
	for i := 1; i < len(desc); i++ {
		if desc[i-1] <= desc[i] {
			t.Fatalf("descending walk out of order: %v", desc)
		}
	}
}

func TestLevelTreeDeleteMany(t *testing.T) {
	tree := NewLevelTree()
	for p := int64(1); p <= 64; p++ {
		tree.Upsert(p * 10)
	}
	// delete every other level
	for p := int64(1); p <= 64; p += 2 {
		if !tree.Delete(p * 10) {
			t.Fatalf("delete %d failed", p*10)
		}
	}
	if tree.Size() != 32 {
		t.Fatalf("expected 32 levels left, got %d", tree.Size())
	}
	var asc []int64
	tree.ForEachAscending(func(lvl *PriceLevel) bool {
		asc = append(asc, lvl.Price)
		return true
	})
	for i, p := range asc {
		want := int64(i+1) * 20
		if p != want {
			t.Fatalf("position %d: expected %d, got %d", i, want, p)
		}
	}
}

func TestLevelTreeEarlyStop(t *testing.T) {
	tree := NewLevelTree()
	for p := int64(1); p <= 10; p++ {
		tree.Upsert(p)
	}
	count := 0
	tree.ForEachAscending(func(*PriceLevel) bool {
		count++
		return count < 3
	})
	if count != 3 {
		t.Errorf("walk should have stopped after 3 levels, visited %d", count)
	}
}
