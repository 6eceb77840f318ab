// AngelaMos | 2026
// converter_test.go

package rates

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
)

func TestStaticConverterRoundTrip(t *testing.T) {
	conv, err := NewStaticConverter("1.25")
	if err != nil {
		t.Fatalf("NewStaticConverter() error = %v", err)
	}

	ctx := context.Background()

	settlement, err := conv.ToSettlement(ctx, decimal.NewFromInt(1000))
	if err != nil {
		t.Fatalf("ToSettlement() error = %v", err)
	}
	if !settlement.Equal(decimal.NewFromInt(1250)) {
		t.Fatalf("ToSettlement(1000) = %s, want 1250", settlement)
	}

	reference, err := conv.ToReference(ctx, settlement)
	if err != nil {
		t.Fatalf("ToReference() error = %v", err)
	}
	if !reference.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("ToReference(%s) = %s, want 1000", settlement, reference)
	}
}

func TestNewStaticConverterRejectsBadRates(t *testing.T) {
	for _, rate := range []string{"", "abc", "0", "-1.5"} {
		if _, err := NewStaticConverter(rate); err == nil {
			t.Errorf("NewStaticConverter(%q) accepted, want error", rate)
		}
	}
}
