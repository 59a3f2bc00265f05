package validate

import (
	"testing"

	domainagg "github.com/yungbote/wastecollect-backend/internal/domain/aggregates"
)

type sample struct {
	Description string  `json:"description" validate:"notblank"`
	WasteType   string  `json:"waste_type" validate:"waste_type"`
	Volume      float64 `json:"estimated_volume" validate:"gt=0"`
	Email       string  `json:"email" validate:"omitempty,email"`
}

func TestStructReportsJSONFieldNames(t *testing.T) {
	err := Struct("test", sample{Description: "  ", WasteType: "PLUTONIUM", Volume: 0})
	if !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("want validation, got %v", err)
	}
	fields := domainagg.FieldsOf(err)
	for _, f := range []string{"description", "waste_type", "estimated_volume"} {
		if fields[f] == "" {
			t.Fatalf("missing field %q in %+v", f, fields)
		}
	}
	if _, ok := fields["email"]; ok {
		t.Fatalf("empty optional email should pass")
	}
}

func TestStructAcceptsValidInput(t *testing.T) {
	if err := Struct("test", sample{Description: "old couch", WasteType: "BULKY", Volume: 1.5}); err != nil {
		t.Fatalf("unexpected: %v", err)
	}
}

func TestSingleFailureMessage(t *testing.T) {
	err := Struct("test", sample{Description: "x", WasteType: "GENERAL", Volume: -1})
	var de *domainagg.Error
	if e, ok := err.(*domainagg.Error); ok {
		de = e
	}
	if de == nil || de.Message != "estimated_volume must be greater than 0" {
		t.Fatalf("message: %v", err)
	}
}
