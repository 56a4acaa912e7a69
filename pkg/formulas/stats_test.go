package formulas

import (
	"math"
	"testing"
)

func TestReturns(t *testing.T) {
	tests := []struct {
		name      string
		prices    []float64
		want      []float64
		tolerance float64
	}{
		{name: "empty prices", prices: []float64{}, want: []float64{}},
		{name: "single price", prices: []float64{100.0}, want: []float64{}},
		{name: "two prices positive return", prices: []float64{100.0, 110.0}, want: []float64{0.10}, tolerance: 0.0001},
		{name: "two prices negative return", prices: []float64{100.0, 90.0}, want: []float64{-0.10}, tolerance: 0.0001},
		{name: "price sequence with zero", prices: []float64{100.0, 0.0, 110.0}, want: []float64{-1.0, 0.0}, tolerance: 0.0001},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Returns(tt.prices)
			if len(got) != len(tt.want) {
				t.Fatalf("Returns() length = %v, want %v", len(got), len(tt.want))
			}
			for i := range got {
				if math.Abs(got[i]-tt.want[i]) > tt.tolerance {
					t.Errorf("Returns()[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestAnnualizedVolatility(t *testing.T) {
	if v := AnnualizedVolatility(nil); v != 0 {
		t.Errorf("AnnualizedVolatility(nil) = %v, want 0", v)
	}
	constant := make([]float64, 252)
	for i := range constant {
		constant[i] = 0.001
	}
	if v := AnnualizedVolatility(constant); math.Abs(v) > 0.0001 {
		t.Errorf("AnnualizedVolatility(constant) = %v, want ~0", v)
	}
}

func TestCorrelation(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	y := []float64{2, 4, 6, 8, 10}
	if c := Correlation(x, y); math.Abs(c-1.0) > 1e-9 {
		t.Errorf("Correlation(perfectly linear) = %v, want 1.0", c)
	}
	if c := Correlation(x, []float64{1, 2}); c != 0 {
		t.Errorf("Correlation(mismatched lengths) = %v, want 0", c)
	}
	if c := Correlation(nil, nil); c != 0 {
		t.Errorf("Correlation(nil, nil) = %v, want 0", c)
	}
}
