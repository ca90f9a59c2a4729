package index

import (
	"errors"
	"fmt"
	"testing"
)

func TestOpKindString(t *testing.T) {
	if OpAdd.String() != "add" || OpDelete.String() != "delete" {
		t.Errorf("unexpected kind names: %s, %s", OpAdd, OpDelete)
	}
	if OpKind(99).String() != "unknown" {
		t.Error("out-of-range kind should be unknown")
	}
}

func TestParseFieldTypeRoundTrip(t *testing.T) {
	for ft := TypeString; ft <= TypeDateMinute; ft++ {
		got, ok := ParseFieldType(ft.String())
		if !ok || got != ft {
			t.Errorf("round trip failed for %s: got %s ok=%v", ft, got, ok)
		}
	}

	if _, ok := ParseFieldType("nonsense"); ok {
		t.Error("unknown name should not parse")
	}
}

func TestItemClone(t *testing.T) {
	orig := Item{ID: "1", Fields: []Field{{Name: "a", Value: 1, Type: TypeInt}}}
	clone := orig.Clone()
	clone.Fields[0].Name = "mutated"
	clone.Fields = append(clone.Fields, Field{Name: "b"})

	if orig.Fields[0].Name != "a" {
		t.Error("mutating the clone must not touch the original")
	}
	if len(orig.Fields) != 1 {
		t.Error("appending to the clone must not grow the original")
	}
}

func TestHasField(t *testing.T) {
	item := Item{Fields: []Field{{Name: IDField}}}
	if !item.HasField(IDField) {
		t.Error("IDField should be found")
	}
	if item.HasField(CategoryField) {
		t.Error("CategoryField should be absent")
	}
}

func TestOperationConstructors(t *testing.T) {
	add := Add(Item{ID: "1"})
	if add.Kind != OpAdd || add.Item.ID != "1" {
		t.Errorf("Add built %+v", add)
	}

	del := Delete("2")
	if del.Kind != OpDelete || del.Item.ID != "2" {
		t.Errorf("Delete built %+v", del)
	}
}

func TestIndexingError(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := IndexingError{Message: "write failed", ItemID: "7", Cause: cause}

	if err.Error() != "write failed (item 7)" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("Unwrap should expose the cause")
	}

	noItem := IndexingError{Message: "cycle aborted"}
	if noItem.Error() != "cycle aborted" {
		t.Errorf("Error() = %q", noItem.Error())
	}
}
