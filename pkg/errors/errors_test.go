package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("disk full")
	err := Wrap(CodeDependency, cause, "persist sale")

	if !stdErrors.Is(err, cause) {
		t.Fatal("expected wrapped cause to survive errors.Is")
	}
	if typed := As(fmt.Errorf("outer: %w", err)); typed == nil || typed.Code() != CodeDependency {
		t.Fatalf("expected typed error through the chain, got %v", typed)
	}
}

func TestMetadataForUnknownCodeFallsBack(t *testing.T) {
	meta := MetadataFor(Code("BOGUS"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal fallback, got %d", meta.HTTPStatus)
	}
}

func TestInsufficientStockDetails(t *testing.T) {
	err := InsufficientStock("prod-1", 11, 10)
	if err.Code() != CodeInsufficientStock {
		t.Fatalf("unexpected code %s", err.Code())
	}
	details, ok := err.Details().(map[string]any)
	if !ok {
		t.Fatalf("expected map details, got %T", err.Details())
	}
	if details["requested"] != 11 || details["available"] != 10 {
		t.Fatalf("unexpected details %v", details)
	}
	meta := MetadataFor(err.Code())
	if meta.HTTPStatus != http.StatusConflict || !meta.DetailsAllowed {
		t.Fatalf("unexpected metadata %+v", meta)
	}
}

func TestUnknownReference(t *testing.T) {
	err := UnknownReference("customer", "42")
	if err.Code() != CodeNotFound {
		t.Fatalf("unexpected code %s", err.Code())
	}
	if err.Message() != "customer not found" {
		t.Fatalf("unexpected message %q", err.Message())
	}
}

func TestDumpCollectsChain(t *testing.T) {
	err := Wrap(CodeTimeout, stdErrors.New("context deadline exceeded"), "record sale")
	dump := Dump(err)
	if dump.Code != CodeTimeout {
		t.Fatalf("unexpected dump code %s", dump.Code)
	}
	if len(dump.Chain) < 2 {
		t.Fatalf("expected full chain, got %v", dump.Chain)
	}
}
