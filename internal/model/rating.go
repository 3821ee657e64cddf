package model

// RatingSystem はユーザーごとに設定されるレーティングスケールを表す。
// MediaLog.Ratingの有効範囲と統計ヒストグラムのバケット構成を決定する。
type RatingSystem string

const (
	// RatingSystemFiveStar は5段階の星評価（1〜5、整数）。
	RatingSystemFiveStar RatingSystem = "five_star"
	// RatingSystemTenStar は10段階の星評価（1〜10、整数）。デフォルト。
	RatingSystemTenStar RatingSystem = "ten_star"
	// RatingSystemHundredPoint は100点満点（1〜100、整数）。
	RatingSystemHundredPoint RatingSystem = "hundred_point"
	// RatingSystemThumbs は好き/嫌いの2値（0または1）。
	RatingSystemThumbs RatingSystem = "thumbs"
	// RatingSystemDecimal は小数評価（0.0〜10.0）。
	RatingSystemDecimal RatingSystem = "decimal"
)

// DefaultRatingSystem は新規ユーザーのデフォルトレーティングシステム。
const DefaultRatingSystem = RatingSystemTenStar

// IsValid はレーティングシステムが閉集合に含まれるかを判定する。
func (rs RatingSystem) IsValid() bool {
	switch rs {
	case RatingSystemFiveStar, RatingSystemTenStar, RatingSystemHundredPoint,
		RatingSystemThumbs, RatingSystemDecimal:
		return true
	default:
		return false
	}
}

// Max はレーティングの最大値を返す。
func (rs RatingSystem) Max() float64 {
	switch rs {
	case RatingSystemFiveStar:
		return 5
	case RatingSystemHundredPoint:
		return 100
	case RatingSystemThumbs:
		return 1
	default:
		// ten_star / decimal
		return 10
	}
}

// Min はレーティングの最小値を返す。
func (rs RatingSystem) Min() float64 {
	switch rs {
	case RatingSystemThumbs, RatingSystemDecimal:
		return 0
	default:
		return 1
	}
}

// Contains はレーティング値がこのシステムの有効範囲内かを判定する。
func (rs RatingSystem) Contains(rating float64) bool {
	return rating >= rs.Min() && rating <= rs.Max()
}

// BucketCount はヒストグラムのバケット数を返す。
// hundred_pointは10点刻み、decimalは1.0刻みの10バケットに丸める。
func (rs RatingSystem) BucketCount() int {
	switch rs {
	case RatingSystemFiveStar:
		return 5
	case RatingSystemThumbs:
		return 2
	default:
		// ten_star / hundred_point / decimal
		return 10
	}
}

// BucketIndex はレーティング値が属するバケットの添字（0始まり）を返す。
// 範囲外の値は最も近い端のバケットに丸める。
func (rs RatingSystem) BucketIndex(rating float64) int {
	n := rs.BucketCount()

	var idx int
	switch rs {
	case RatingSystemThumbs:
		if rating >= 0.5 {
			idx = 1
		}
	case RatingSystemHundredPoint:
		idx = int((rating - 1) / 10)
	case RatingSystemDecimal:
		idx = int(rating)
		if rating >= 10 {
			idx = n - 1
		}
	default:
		// five_star / ten_star: 値1がバケット0
		idx = int(rating) - 1
	}

	if idx < 0 {
		return 0
	}
	if idx >= n {
		return n - 1
	}
	return idx
}
