// Package boundaries maps sky positions to IAU constellations using the
// Roman (1987) table of boundary segments, which is defined for the B1875.0 equinox.
package boundaries

import (
	"bufio"
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/skyscope/skyscope/internal/astrometry"
	"github.com/skyscope/skyscope/internal/models"
)

//go:embed data/bound_b1875.dat
var embeddedTable []byte

//go:embed data/names.dat
var embeddedNames []byte

type segment struct {
	raLow  float64
	raHigh float64
	decLow float64
	id     models.ConstellationID
}

// Table is the ordered list of boundary segments. The first segment whose
// declination floor and RA band contain a position names its constellation.
type Table struct {
	segments []segment
}

// LoadTable reads a boundary table from path, or the embedded copy when path is empty.
func LoadTable(path string) (*Table, error) {
	if path == "" {
		return ParseTable(bytes.NewReader(embeddedTable))
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open boundary table: %w", err)
	}
	defer file.Close()
	return ParseTable(file)
}

// ParseTable reads whitespace separated rows of "ra_low ra_high dec_low ABBR".
// Rows are sorted by descending dec_low; lines starting with # are ignored.
func ParseTable(r io.Reader) (*Table, error) {
	var segments []segment
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 4 {
			return nil, fmt.Errorf("line %d: expected 4 fields, got %d", lineNum, len(fields))
		}

		var nums [3]float64
		for i := 0; i < 3; i++ {
			v, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNum, err)
			}
			nums[i] = v
		}
		if nums[0] < 0 || nums[1] > 24 || nums[0] >= nums[1] {
			return nil, fmt.Errorf("line %d: bad RA band %v..%v", lineNum, nums[0], nums[1])
		}
		if nums[2] < -90 || nums[2] > 90 {
			return nil, fmt.Errorf("line %d: bad declination %v", lineNum, nums[2])
		}

		segments = append(segments, segment{
			raLow:  nums[0],
			raHigh: nums[1],
			decLow: nums[2],
			id:     models.ConstellationID(strings.ToUpper(fields[3])),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading boundary table: %w", err)
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("boundary table is empty")
	}

	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].decLow > segments[j].decLow
	})

	last := segments[len(segments)-1]
	if last.decLow != -90 || last.raLow != 0 || last.raHigh != 24 {
		return nil, fmt.Errorf("boundary table must end with a full-circle row at -90")
	}

	return &Table{segments: segments}, nil
}

// Len returns the number of segments
func (t *Table) Len() int {
	return len(t.segments)
}

// IDs returns every constellation referenced by the table, sorted.
func (t *Table) IDs() []models.ConstellationID {
	set := models.VisibleSet{}
	for _, s := range t.segments {
		set.Add(s.id)
	}
	return set.IDs()
}

// Lookup returns the constellation containing a B1875.0 position.
func (t *Table) Lookup(raHours, decDeg float64) models.ConstellationID {
	for _, s := range t.segments {
		if decDeg >= s.decLow && raHours >= s.raLow && raHours < s.raHigh {
			return s.id
		}
	}
	// unreachable with a valid table; the final row covers the south pole cap
	return t.segments[len(t.segments)-1].id
}

// ConstellationAt precesses an apparent position back to B1875.0 and looks it up.
func (t *Table) ConstellationAt(pos models.ApparentPosition) models.ConstellationID {
	epoch := pos.JulianDate
	if epoch == 0 {
		epoch = astrometry.J2000
	}
	ra, dec := astrometry.Precess(pos.RightAscensionHours, pos.DeclinationDegrees, epoch, astrometry.B1875)
	return t.Lookup(ra, dec)
}

// Names maps IAU abbreviations to full constellation names
type Names struct {
	byID map[models.ConstellationID]string
	ids  []models.ConstellationID
}

// LoadNames reads a name table from path, or the embedded copy when path is empty.
func LoadNames(path string) (*Names, error) {
	if path == "" {
		return ParseNames(bytes.NewReader(embeddedNames))
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open name table: %w", err)
	}
	defer file.Close()
	return ParseNames(file)
}

// ParseNames reads lines of "ABBR Full Name".
func ParseNames(r io.Reader) (*Names, error) {
	names := &Names{byID: map[models.ConstellationID]string{}}
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		abbr, name, ok := strings.Cut(line, " ")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("line %d: expected abbreviation and name", lineNum)
		}
		id := models.ConstellationID(strings.ToUpper(abbr))
		if _, dup := names.byID[id]; dup {
			return nil, fmt.Errorf("line %d: duplicate abbreviation %s", lineNum, id)
		}
		names.byID[id] = name
		names.ids = append(names.ids, id)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading name table: %w", err)
	}
	sort.Slice(names.ids, func(i, j int) bool { return names.ids[i] < names.ids[j] })
	return names, nil
}

// Name returns the full name for id
func (n *Names) Name(id models.ConstellationID) (string, bool) {
	name, ok := n.byID[id]
	return name, ok
}

// IDs returns all known abbreviations, sorted
func (n *Names) IDs() []models.ConstellationID {
	return append([]models.ConstellationID(nil), n.ids...)
}

// Check verifies every constellation in the table has a name.
func (n *Names) Check(t *Table) error {
	var missing []string
	for _, id := range t.IDs() {
		if _, ok := n.byID[id]; !ok {
			missing = append(missing, string(id))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("no names for constellations: %s", strings.Join(missing, ", "))
	}
	return nil
}
