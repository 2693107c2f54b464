package features

import "fmt"

// SekkiKind classifies a sekki as a principal term (中気, zhongqi) or a
// minor term (節, setsu).
type SekkiKind string

const (
	KindChuuki SekkiKind = "中気" // principal term, n even
	KindSetsu  SekkiKind = "節"  // minor term, n odd
)

// sekki24Names is indexed by n = (deg/15) mod 24, starting at 0 degrees
// (vernal equinox).
var sekki24Names = [24]string{
	"春分", // 0   0 deg
	"清明", // 1  15
	"穀雨", // 2  30
	"立夏", // 3  45
	"小満", // 4  60
	"芒種", // 5  75
	"夏至", // 6  90
	"小暑", // 7 105
	"大暑", // 8 120
	"立秋", // 9 135
	"処暑", // 10 150
	"白露", // 11 165
	"秋分", // 12 180
	"寒露", // 13 195
	"霜降", // 14 210
	"立冬", // 15 225
	"小雪", // 16 240
	"大雪", // 17 255
	"冬至", // 18 270
	"小寒", // 19 285
	"大寒", // 20 300
	"立春", // 21 315
	"雨水", // 22 330
	"啓蟄", // 23 345
}

// SekkiName returns the name of the sekki at the given degree, normalized
// to the nearest multiple of 15.
func SekkiName(deg float64) (string, error) {
	n, err := sekkiIndex(deg)
	if err != nil {
		return "", err
	}
	return sekki24Names[n], nil
}

// SekkiKindFor returns the kind (中気/節) of the sekki at the given degree.
func SekkiKindFor(deg float64) (SekkiKind, error) {
	n, err := sekkiIndex(deg)
	if err != nil {
		return "", err
	}
	if n%2 == 0 {
		return KindChuuki, nil
	}
	return KindSetsu, nil
}

func sekkiIndex(deg float64) (int, error) {
	if deg < 0 || deg >= 360 {
		return 0, fmt.Errorf("features: sekki degree %.2f out of range [0,360)", deg)
	}
	n := int(deg/15+0.5) % 24
	return n, nil
}
