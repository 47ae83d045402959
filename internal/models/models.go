package models

import (
	"errors"
	"fmt"
	"image"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrMissingGeolocation is returned when latitude or longitude was not supplied.
	ErrMissingGeolocation = errors.New("missing geolocation")
	// ErrInvalidGeolocation is returned when a coordinate is out of range or not a number.
	ErrInvalidGeolocation = errors.New("invalid geolocation")
)

// ObserverPosition is where and when the sky is being looked at
type ObserverPosition struct {
	Latitude  float64   `json:"latitude" yaml:"latitude"`
	Longitude float64   `json:"longitude" yaml:"longitude"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// NewObserverPosition validates the coordinates and normalizes the timestamp to UTC.
func NewObserverPosition(latitude, longitude float64, timestamp time.Time) (ObserverPosition, error) {
	if math.IsNaN(latitude) || math.IsInf(latitude, 0) || latitude < -90 || latitude > 90 {
		return ObserverPosition{}, fmt.Errorf("%w: latitude %v outside [-90, 90]", ErrInvalidGeolocation, latitude)
	}
	if math.IsNaN(longitude) || math.IsInf(longitude, 0) || longitude < -180 || longitude > 180 {
		return ObserverPosition{}, fmt.Errorf("%w: longitude %v outside [-180, 180]", ErrInvalidGeolocation, longitude)
	}
	return ObserverPosition{
		Latitude:  latitude,
		Longitude: longitude,
		Timestamp: timestamp.UTC(),
	}, nil
}

// ParseObserverPosition builds an observer from textual coordinates, as found in
// query strings and CLI arguments. Empty strings mean the fix was never acquired.
func ParseObserverPosition(latitude, longitude string, timestamp time.Time) (ObserverPosition, error) {
	latitude, longitude = strings.TrimSpace(latitude), strings.TrimSpace(longitude)
	if latitude == "" || longitude == "" {
		return ObserverPosition{}, ErrMissingGeolocation
	}
	lat, err := strconv.ParseFloat(latitude, 64)
	if err != nil {
		return ObserverPosition{}, fmt.Errorf("%w: latitude %q", ErrInvalidGeolocation, latitude)
	}
	lon, err := strconv.ParseFloat(longitude, 64)
	if err != nil {
		return ObserverPosition{}, fmt.Errorf("%w: longitude %q", ErrInvalidGeolocation, longitude)
	}
	return NewObserverPosition(lat, lon, timestamp)
}

// CelestialSample is a fixed point on the J2000 sky grid
type CelestialSample struct {
	RightAscensionHours float64
	DeclinationDegrees  float64
}

// ApparentPosition is a sample as seen by an observer at a given instant.
// RA/Dec are mean place of date: referred to the mean equinox of JulianDate,
// precessed only. Nutation and aberration are not applied, which leaves them
// under an arcminute from the true apparent place. Altitude is geometric.
type ApparentPosition struct {
	RightAscensionHours float64
	DeclinationDegrees  float64
	AltitudeDegrees     float64
	AzimuthDegrees      float64
	JulianDate          float64
}

// ConstellationID is the three-letter IAU abbreviation, upper case (e.g. "ORI").
type ConstellationID string

// VisibleSet holds the constellations with at least one grid sample above the horizon.
type VisibleSet map[ConstellationID]struct{}

// Add records id as visible
func (v VisibleSet) Add(id ConstellationID) {
	v[id] = struct{}{}
}

// Has reports whether id is in the set
func (v VisibleSet) Has(id ConstellationID) bool {
	_, ok := v[id]
	return ok
}

// IDs returns the members in ascending order
func (v VisibleSet) IDs() []ConstellationID {
	ids := make([]ConstellationID, 0, len(v))
	for id := range v {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ClassToken is a constellation name in detector label form: lower case, words joined by "_".
type ClassToken string

// RawDetection is one candidate straight out of the detector, in pixel space.
type RawDetection struct {
	BBox       [4]float64
	Confidence float64
	ClassIndex int
}

// Frame is a decoded upload handed to a detector backend. Data keeps the
// original encoded bytes for backends that forward them as-is.
type Frame struct {
	Image  image.Image
	Data   []byte
	Format string
}

// Width of the decoded image in pixels
func (f Frame) Width() int {
	return f.Image.Bounds().Dx()
}

// Height of the decoded image in pixels
func (f Frame) Height() int {
	return f.Image.Bounds().Dy()
}

// Detection is a filtered, labelled result returned to callers
type Detection struct {
	Class      string     `json:"class" yaml:"class"`
	Confidence float64    `json:"confidence" yaml:"confidence"`
	BBox       [4]float64 `json:"bbox" yaml:"bbox"`
}

// DetectionResponse is the success body of the detect endpoint
type DetectionResponse struct {
	Detections []Detection `json:"detections"`
}

// ErrorResponse is the body of every failed API call
type ErrorResponse struct {
	Error string `json:"error"`
}

// VisibleConstellation is one entry of the visibility report
type VisibleConstellation struct {
	ID    ConstellationID `json:"id" yaml:"id"`
	Name  string          `json:"name" yaml:"name"`
	Token ClassToken      `json:"token" yaml:"token"`
}

// VisibleResponse is the body returned by the visibility endpoint
type VisibleResponse struct {
	Observer       ObserverPosition       `json:"observer" yaml:"observer"`
	Constellations []VisibleConstellation `json:"constellations" yaml:"constellations"`
	Interesting    []string               `json:"interesting" yaml:"interesting"`
	Classes        []ClassToken           `json:"classes" yaml:"classes"`
}

// LabelsResponse lists the detector's label vocabulary in class-index order.
type LabelsResponse struct {
	Backend string   `json:"backend"`
	Labels  []string `json:"labels"`
}
