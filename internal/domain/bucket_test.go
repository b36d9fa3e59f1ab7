package domain

import "testing"

func TestBucketFor_Boundaries(t *testing.T) {
	tests := []struct {
		days float64
		want Bucket
	}{
		{0, BucketActive},
		{6.9, BucketActive},
		{7, BucketActive},
		{7.01, BucketWaning},
		{28, BucketWaning},
		{28.01, BucketDormant},
		{56, BucketDormant},
		{56.01, BucketLapsed},
		{365, BucketLapsed},
	}
	for _, tt := range tests {
		if got := BucketFor(tt.days); got != tt.want {
			t.Errorf("BucketFor(%.2f) = %s, want %s", tt.days, got, tt.want)
		}
	}
}

func TestSummary_CountPartition(t *testing.T) {
	var s Summary
	for _, b := range []Bucket{BucketActive, BucketActive, BucketWaning, BucketDormant, BucketLapsed} {
		s.Count(b)
	}

	if s.TotalMembers != 5 {
		t.Fatalf("expected 5 members, got %d", s.TotalMembers)
	}
	if sum := s.Active + s.Waning + s.Dormant + s.Lapsed; sum != s.TotalMembers {
		t.Errorf("bucket counts (%d) must sum to total members (%d)", sum, s.TotalMembers)
	}
	if s.Active != 2 || s.Waning != 1 || s.Dormant != 1 || s.Lapsed != 1 {
		t.Errorf("unexpected histogram: %+v", s)
	}
}
