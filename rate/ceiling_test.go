package rate

import "testing"

func TestCeiling_StartsAtMin(t *testing.T) {
	c := NewCeiling(CeilingConfig{Min: 50})
	if c.Value() != 50 {
		t.Errorf("Value = %v, want 50", c.Value())
	}
}

func TestCeiling_GrowsNearTop(t *testing.T) {
	c := NewCeiling(CeilingConfig{Min: 100})
	got := c.Update(85)
	if !almostEqual(got, 127.5) {
		t.Errorf("ceiling after 85 = %v, want 127.5", got)
	}
}

func TestCeiling_GrowNeverBelowMin(t *testing.T) {
	c := NewCeiling(CeilingConfig{Min: 100})
	c.Update(500) // 750
	// 0.8*750 = 600, so 610 grows to max(100, 915).
	if got := c.Update(610); !almostEqual(got, 915) {
		t.Errorf("ceiling = %v, want 915", got)
	}
}

func TestCeiling_SteadyStateUnchanged(t *testing.T) {
	c := NewCeiling(CeilingConfig{Min: 100})
	for i := 0; i < 50; i++ {
		if got := c.Update(40); got != 100 {
			t.Fatalf("observation %d: ceiling = %v, want 100", i, got)
		}
	}
}

func TestCeiling_DecayAfterDebounce(t *testing.T) {
	c := NewCeiling(CeilingConfig{Min: 100})
	c.Update(85) // 127.5

	for i := 1; i < DefaultDebounce; i++ {
		if got := c.Update(1); !almostEqual(got, 127.5) {
			t.Fatalf("low observation %d: ceiling = %v, want 127.5", i, got)
		}
	}

	// Tenth low observation decays: max(100, 127.5*0.7) = 100.
	if got := c.Update(1); got != 100 {
		t.Errorf("ceiling after debounce = %v, want 100", got)
	}
	// Never drops under the floor.
	for i := 0; i < 20; i++ {
		if got := c.Update(0); got != 100 {
			t.Fatalf("ceiling = %v, want floor 100", got)
		}
	}
}

func TestCeiling_DecayInSteps(t *testing.T) {
	c := NewCeiling(CeilingConfig{Min: 10})
	c.Update(1000) // 1500
	for i := 1; i < DefaultDebounce; i++ {
		c.Update(0)
	}

	want := 1500.0
	for step := 0; step < 5; step++ {
		want = max(10, want*DefaultDecayBy)
		if got := c.Update(0); !almostEqual(got, want) {
			t.Fatalf("decay step %d: ceiling = %v, want %v", step, got, want)
		}
	}
}

func TestCeiling_GrowthResetsDebounce(t *testing.T) {
	c := NewCeiling(CeilingConfig{Min: 100})
	c.Update(85) // 127.5
	for i := 0; i < DefaultDebounce-1; i++ {
		c.Update(1)
	}
	c.Update(120) // grows to 180, counter back to zero
	for i := 1; i < DefaultDebounce; i++ {
		if got := c.Update(1); !almostEqual(got, 180) {
			t.Fatalf("low observation %d after regrowth: ceiling = %v, want 180", i, got)
		}
	}
}

func TestCeiling_MidRangeDoesNotDecay(t *testing.T) {
	c := NewCeiling(CeilingConfig{Min: 100})
	c.Update(200) // 300
	for i := 0; i < 40; i++ {
		// 50 is between 10% and 80% of 300.
		if got := c.Update(50); !almostEqual(got, 300) {
			t.Fatalf("observation %d: ceiling = %v, want 300", i, got)
		}
	}
}

func TestCeiling_Fraction(t *testing.T) {
	c := NewCeiling(CeilingConfig{Min: 100})
	tests := []struct {
		v    float64
		want float64
	}{
		{-5, 0},
		{0, 0},
		{25, 0.25},
		{100, 1},
		{400, 1},
	}
	for _, tt := range tests {
		if got := c.Fraction(tt.v); !almostEqual(got, tt.want) {
			t.Errorf("Fraction(%v) = %v, want %v", tt.v, got, tt.want)
		}
	}
}

func TestCeiling_Reset(t *testing.T) {
	c := NewCeiling(CeilingConfig{Min: 50})
	c.Update(400)
	c.Reset()
	if c.Value() != 50 {
		t.Errorf("Value after Reset = %v, want 50", c.Value())
	}
}
