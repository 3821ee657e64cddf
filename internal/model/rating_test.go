package model

import "testing"

// RatingSystemの範囲検証を確認する。
func TestRatingSystem_Contains(t *testing.T) {
	tests := []struct {
		name   string
		system RatingSystem
		rating float64
		want   bool
	}{
		{"five_starの上限", RatingSystemFiveStar, 5, true},
		{"five_starの範囲外", RatingSystemFiveStar, 6, false},
		{"ten_starの下限", RatingSystemTenStar, 1, true},
		{"ten_starの0は範囲外", RatingSystemTenStar, 0, false},
		{"hundred_pointの中間", RatingSystemHundredPoint, 73, true},
		{"hundred_pointの範囲外", RatingSystemHundredPoint, 101, false},
		{"thumbsの0", RatingSystemThumbs, 0, true},
		{"thumbsの1", RatingSystemThumbs, 1, true},
		{"thumbsの2は範囲外", RatingSystemThumbs, 2, false},
		{"decimalの小数", RatingSystemDecimal, 7.5, true},
		{"decimalの0.0", RatingSystemDecimal, 0.0, true},
		{"decimalの範囲外", RatingSystemDecimal, 10.1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.system.Contains(tt.rating); got != tt.want {
				t.Errorf("Contains(%v) = %v, want %v", tt.rating, got, tt.want)
			}
		})
	}
}

// バケット添字の計算を確認する。
func TestRatingSystem_BucketIndex(t *testing.T) {
	tests := []struct {
		name   string
		system RatingSystem
		rating float64
		want   int
	}{
		{"five_starの1はバケット0", RatingSystemFiveStar, 1, 0},
		{"five_starの5は最終バケット", RatingSystemFiveStar, 5, 4},
		{"ten_starの8", RatingSystemTenStar, 8, 7},
		{"hundred_pointの95", RatingSystemHundredPoint, 95, 9},
		{"hundred_pointの5", RatingSystemHundredPoint, 5, 0},
		{"thumbsの0", RatingSystemThumbs, 0, 0},
		{"thumbsの1", RatingSystemThumbs, 1, 1},
		{"decimalの7.5", RatingSystemDecimal, 7.5, 7},
		{"decimalの10.0は最終バケット", RatingSystemDecimal, 10.0, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.system.BucketIndex(tt.rating); got != tt.want {
				t.Errorf("BucketIndex(%v) = %d, want %d", tt.rating, got, tt.want)
			}
		})
	}
}

// MediaTypeとMediaStatusの閉集合検証を確認する。
func TestClosedSets_IsValid(t *testing.T) {
	for _, mt := range AllMediaTypes() {
		if !mt.IsValid() {
			t.Errorf("MediaType %q should be valid", mt)
		}
	}
	if MediaType("music").IsValid() {
		t.Error("MediaType music should be invalid")
	}

	for _, st := range AllMediaStatuses() {
		if !st.IsValid() {
			t.Errorf("MediaStatus %q should be valid", st)
		}
	}
	if MediaStatus("paused").IsValid() {
		t.Error("MediaStatus paused should be invalid")
	}
}
