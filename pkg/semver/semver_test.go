package semver

import (
	"reflect"
	"testing"
)

func TestCompareNumeric(t *testing.T) {
	if Compare("1.0.0", "1.2.0") >= 0 {
		t.Fatalf("expected 1.0.0 < 1.2.0")
	}
	if Compare("2.0.0", "1.9.9") <= 0 {
		t.Fatalf("expected 2.0.0 > 1.9.9")
	}
	if Compare("1.0.0", "1.0.0") != 0 {
		t.Fatalf("expected equal versions to compare 0")
	}
}

func TestPrereleaseSortsBeforeRelease(t *testing.T) {
	if Compare("1.0.0-rc1", "1.0.0") >= 0 {
		t.Fatalf("expected pre-release to sort before release")
	}
}

func TestSortAscending(t *testing.T) {
	versions := []string{"1.2.0", "1.0.0", "1.10.0", "1.0.0-rc1"}
	Sort(versions)
	want := []string{"1.0.0-rc1", "1.0.0", "1.2.0", "1.10.0"}
	if !reflect.DeepEqual(versions, want) {
		t.Fatalf("got %v, want %v", versions, want)
	}
}
