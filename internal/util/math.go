package util

import (
	"math"
	"strconv"
)

// Thousands formats n rounded to an integer with comma separators.
func Thousands(n float64) string {
	s := strconv.FormatInt(int64(math.Round(math.Abs(n))), 10)
	out := make([]byte, 0, len(s)+len(s)/3+1)
	if n < 0 && math.Round(n) != 0 {
		out = append(out, '-')
	}
	for i := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	return string(out)
}
