package enums

import "testing"

func TestSaleStatusTransitions(t *testing.T) {
	cases := []struct {
		from    SaleStatus
		to      SaleStatus
		allowed bool
	}{
		{SaleStatusPending, SaleStatusCompleted, true},
		{SaleStatusPending, SaleStatusCancelled, true},
		{SaleStatusPending, SaleStatusRefunded, false},
		{SaleStatusCompleted, SaleStatusRefunded, true},
		{SaleStatusCompleted, SaleStatusCancelled, true},
		{SaleStatusCompleted, SaleStatusPending, false},
		{SaleStatusRefunded, SaleStatusCompleted, false},
		{SaleStatusCancelled, SaleStatusCompleted, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.allowed {
			t.Fatalf("%s -> %s: expected %v, got %v", tc.from, tc.to, tc.allowed, got)
		}
	}
}

func TestParsePaymentMethod(t *testing.T) {
	if _, err := ParsePaymentMethod("cash"); err != nil {
		t.Fatalf("expected cash to parse: %v", err)
	}
	if _, err := ParsePaymentMethod("bitcoin"); err == nil {
		t.Fatal("expected unknown payment method to fail")
	}
}

func TestParseInventoryChangeType(t *testing.T) {
	for _, value := range []string{"sale", "restock", "adjustment", "damage", "return"} {
		if _, err := ParseInventoryChangeType(value); err != nil {
			t.Fatalf("expected %q to parse: %v", value, err)
		}
	}
	if InventoryChangeType("shrinkage").IsValid() {
		t.Fatal("expected unknown change type to be invalid")
	}
}
