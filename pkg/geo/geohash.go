package geo

import "strings"

// base32 alphabet used by geohash (no a, i, l, o).
const geohashAlphabet = "0123456789bcdefghjkmnpqrstuvwxyz"

// Geohash encodes a coordinate to a geohash string of the given precision
// (number of characters). Longitude and latitude bits are interleaved,
// longitude first, five bits per character.
func Geohash(lat, lon float64, precision int) string {
	if precision <= 0 {
		return ""
	}

	latMin, latMax := -90.0, 90.0
	lonMin, lonMax := -180.0, 180.0

	var sb strings.Builder
	sb.Grow(precision)

	even := true // even bit positions encode longitude
	idx := 0
	bit := 0

	for sb.Len() < precision {
		if even {
			mid := (lonMin + lonMax) / 2
			if lon >= mid {
				idx = idx<<1 | 1
				lonMin = mid
			} else {
				idx <<= 1
				lonMax = mid
			}
		} else {
			mid := (latMin + latMax) / 2
			if lat >= mid {
				idx = idx<<1 | 1
				latMin = mid
			} else {
				idx <<= 1
				latMax = mid
			}
		}
		even = !even

		bit++
		if bit == 5 {
			sb.WriteByte(geohashAlphabet[idx])
			bit = 0
			idx = 0
		}
	}

	return sb.String()
}
