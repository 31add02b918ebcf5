package validation

import (
	"errors"
	"reflect"
	"testing"

	"github.com/Lllllllleong/pdfworkbench/internal/models"
	"github.com/Lllllllleong/pdfworkbench/internal/staging"
)

func doc(name string, pages int) models.StagedItem {
	return models.StagedItem{
		Name:     name,
		Size:     int64(100 + pages),
		Metadata: models.Metadata{State: models.MetadataLoaded, PageCount: pages},
	}
}

func TestMerge(t *testing.T) {
	two := []models.StagedItem{doc("a.pdf", 1), doc("b.pdf", 1)}
	tests := []struct {
		name    string
		items   []models.StagedItem
		opts    MergeOptions
		wantErr bool
	}{
		{"no items", nil, MergeOptions{}, true},
		{"one item", two[:1], MergeOptions{}, true},
		{"two items", two, MergeOptions{}, false},
		{"password enabled but empty", two, MergeOptions{PasswordEnabled: true}, true},
		{"password enabled but blank", two, MergeOptions{PasswordEnabled: true, Password: "   "}, true},
		{"password enabled and set", two, MergeOptions{PasswordEnabled: true, Password: "s3cret"}, false},
		{"password ignored when disabled", two, MergeOptions{Password: ""}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Merge(tt.items, tt.opts)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Merge() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var verr *Error
				if !errors.As(err, &verr) || verr.Tool != "merge" || verr.Reason == "" {
					t.Errorf("expected a merge validation error, got %#v", err)
				}
			}
		})
	}
}

func TestSplit(t *testing.T) {
	twelve := []models.StagedItem{doc("book.pdf", 12)}
	tests := []struct {
		name    string
		items   []models.StagedItem
		opts    SplitOptions
		want    []int
		wantErr bool
	}{
		{"all pages", twelve, SplitOptions{Mode: SplitAll}, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}, false},
		{"range", twelve, SplitOptions{Mode: SplitRange, Start: 3, End: 5}, []int{2, 3, 4}, false},
		{"single page range", twelve, SplitOptions{Mode: SplitRange, Start: 12, End: 12}, []int{11}, false},
		{"range start after end", twelve, SplitOptions{Mode: SplitRange, Start: 5, End: 3}, nil, true},
		{"range past end", twelve, SplitOptions{Mode: SplitRange, Start: 1, End: 13}, nil, true},
		{"range starts at zero", twelve, SplitOptions{Mode: SplitRange, Start: 0, End: 2}, nil, true},
		{"custom", twelve, SplitOptions{Mode: SplitCustom, Pages: "1-3,5,5,10-9"}, []int{0, 1, 2, 4}, false},
		{"custom all invalid", twelve, SplitOptions{Mode: SplitCustom, Pages: "0,13-20,x"}, nil, true},
		{"custom empty", twelve, SplitOptions{Mode: SplitCustom}, nil, true},
		{"no document", nil, SplitOptions{Mode: SplitAll}, nil, true},
		{"two documents", []models.StagedItem{doc("a.pdf", 1), doc("b.pdf", 1)}, SplitOptions{Mode: SplitAll}, nil, true},
		{"unreadable document", []models.StagedItem{{Name: "bad.pdf", Metadata: models.Metadata{State: models.MetadataUnknown}}}, SplitOptions{Mode: SplitAll}, nil, true},
		{"still loading", []models.StagedItem{{Name: "slow.pdf"}}, SplitOptions{Mode: SplitAll}, nil, true},
		{"unknown mode", twelve, SplitOptions{Mode: "odd"}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Split(tt.items, tt.opts)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Split() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Split() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConvertAndCompress(t *testing.T) {
	if err := Convert(nil); err == nil {
		t.Error("Convert accepted an empty list")
	}
	if err := Convert([]models.StagedItem{{Name: "a.png"}}); err != nil {
		t.Errorf("Convert rejected one image: %v", err)
	}

	if err := Compress(nil); err == nil {
		t.Error("Compress accepted an empty list")
	}
	if err := Compress([]models.StagedItem{doc("a.pdf", 2), doc("b.pdf", 2)}); err == nil {
		t.Error("Compress accepted two documents")
	}
	if err := Compress([]models.StagedItem{doc("a.pdf", 2)}); err != nil {
		t.Errorf("Compress rejected one document: %v", err)
	}
}

func TestParseSplitMode(t *testing.T) {
	for in, want := range map[string]SplitMode{"": SplitAll, "ALL": SplitAll, " range ": SplitRange, "custom": SplitCustom} {
		got, err := ParseSplitMode(in)
		if err != nil || got != want {
			t.Errorf("ParseSplitMode(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseSplitMode("pages"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestRejectionLeavesListUnchanged(t *testing.T) {
	l := staging.New(nil)
	l.Add(models.RawItem{Name: "only.pdf", Size: 10, Source: models.BytesSource("x")})
	before := l.Snapshot()

	first := Merge(l.Snapshot(), MergeOptions{})
	second := Merge(l.Snapshot(), MergeOptions{})
	if first == nil || second == nil {
		t.Fatal("expected merge of one item to be rejected")
	}
	if first.Error() != second.Error() {
		t.Errorf("rejection changed between attempts: %q vs %q", first, second)
	}
	if after := l.Snapshot(); !reflect.DeepEqual(before, after) {
		t.Errorf("list changed after rejected commit: %+v -> %+v", before, after)
	}
}
