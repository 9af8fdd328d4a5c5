package domain

import (
	"math"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rotisserie/eris"
)

// whitespaceRe matches whitespace runs collapsed to a single underscore in keys.
var whitespaceRe = regexp.MustCompile(`\s+`)

// Unit is the diameter unit a source declares.
type Unit string

const (
	Meters     Unit = "m"
	Kilometers Unit = "km"
)

// ParseUnit accepts "m", "meters", "km", "kilometers" (any case). Empty means meters.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "m", "meter", "meters":
		return Meters, nil
	case "km", "kilometer", "kilometers":
		return Kilometers, nil
	default:
		return "", eris.Errorf("unknown diameter unit %q", s)
	}
}

// ToMeters converts v expressed in u to meters.
func (u Unit) ToMeters(v float64) float64 {
	if u == Kilometers {
		return v * 1000
	}
	return v
}

// NormalizeKey derives a region key from a human name:
// "  Mare  Imbrium " -> "mare_imbrium".
func NormalizeKey(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return whitespaceRe.ReplaceAllString(name, "_")
}

// KeyFromFilename derives a region key from a geometry file path:
// "data/Mare_Imbrium.geojson" -> "mare_imbrium".
func KeyFromFilename(path string) string {
	stem := filepath.Base(path)
	stem = strings.TrimSuffix(stem, filepath.Ext(stem))
	return NormalizeKey(stem)
}

// DisplayName turns a region key back into a title: "mare_imbrium" -> "Mare Imbrium".
func DisplayName(key string) string {
	words := strings.Fields(strings.ReplaceAll(key, "_", " "))
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

// NormalizeCrater converts the diameter to meters, normalizes the region
// key, and rejects records whose coordinates or diameter are unusable.
func NormalizeCrater(c CraterRecord, unit Unit) (CraterRecord, error) {
	if err := validateCoordinates(c.Longitude, c.Latitude); err != nil {
		return CraterRecord{}, err
	}
	if math.IsNaN(c.Diameter) || math.IsInf(c.Diameter, 0) || c.Diameter < 0 {
		return CraterRecord{}, eris.Errorf("invalid diameter %v", c.Diameter)
	}
	c.Diameter = unit.ToMeters(c.Diameter)
	if c.Depth != nil {
		d := unit.ToMeters(*c.Depth)
		c.Depth = &d
	}
	c.RegionKey = NormalizeKey(c.RegionKey)
	return c, nil
}

// StepValue validates a timestep read as a number. Steps are non-negative
// integers. An erasure step of +Inf means never erased and yields nil; any
// other non-finite value is an error.
func StepValue(v float64, erasure bool) (*int, error) {
	switch {
	case erasure && math.IsInf(v, 1):
		return nil, nil
	case math.IsNaN(v) || math.IsInf(v, 0):
		return nil, eris.Errorf("non-finite step %v", v)
	case v < 0:
		return nil, eris.Errorf("negative step %v", v)
	case v != math.Trunc(v):
		return nil, eris.Errorf("non-integral step %v", v)
	case v > math.MaxInt32:
		return nil, eris.Errorf("step %v out of range", v)
	}
	return Step(int(v)), nil
}

// validateCoordinates requires finite selenographic degrees within range.
func validateCoordinates(lon, lat float64) error {
	if math.IsNaN(lon) || math.IsInf(lon, 0) || math.IsNaN(lat) || math.IsInf(lat, 0) {
		return eris.Errorf("non-finite coordinates (%v, %v)", lon, lat)
	}
	if lon < -180 || lon > 180 {
		return eris.Errorf("longitude %v out of range", lon)
	}
	if lat < -90 || lat > 90 {
		return eris.Errorf("latitude %v out of range", lat)
	}
	return nil
}
