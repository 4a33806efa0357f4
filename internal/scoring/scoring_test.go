package scoring

import "testing"

func TestCalculatePoints(t *testing.T) {
	cases := []struct {
		name    string
		base    int
		correct bool
		taken   float64
		limit   float64
		want    int
	}{
		{"instant answer", 10, true, 0, 30, 15},
		{"at the limit", 10, true, 30, 30, 10},
		{"incorrect", 10, false, 0, 30, 0},
		{"double base", 20, true, 0, 30, 30},
		{"half time", 10, true, 15, 30, 13}, // 12.5 rounds away from zero
		{"past the limit", 10, true, 45, 30, 10},
		{"negative time clamps", 10, true, -5, 30, 15},
		{"zero limit gives no bonus", 10, true, 0, 0, 10},
		{"incorrect slow", 15, false, 29, 30, 0},
		{"medium fast", 15, true, 3, 30, 22}, // 15 * 1.45 = 21.75
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CalculatePoints(tc.base, tc.correct, tc.taken, tc.limit); got != tc.want {
				t.Fatalf("CalculatePoints(%d, %v, %v, %v) = %d, want %d", tc.base, tc.correct, tc.taken, tc.limit, got, tc.want)
			}
		})
	}
}
