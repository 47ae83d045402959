package sky

import (
	"fmt"
	"strings"
)

// Interest list presets
const (
	PresetFull    = "full"
	PresetCompact = "compact"
)

// FullInterest is the default allow-list. Pleiades is an asterism inside Taurus
// and never comes back from the boundary lookup.
var FullInterest = []string{
	"Aquila", "Bootes", "Canis Major", "Canis Minor", "Cassiopeia",
	"Cygnus", "Gemini", "Leo", "Lyra", "Orion",
	"Pleiades", "Sagittarius", "Scorpius", "Taurus", "Ursa Major",
}

// CompactInterest is the smaller list used by lightweight clients.
var CompactInterest = []string{
	"Orion", "Ursa Major", "Cassiopeia", "Leo", "Scorpius",
	"Sagittarius", "Cygnus", "Lyra", "Gemini", "Taurus",
}

// InterestList returns explicit names when given, otherwise the named preset.
func InterestList(preset string, names []string) ([]string, error) {
	if len(names) > 0 {
		out := make([]string, 0, len(names))
		for _, n := range names {
			if n = strings.TrimSpace(n); n != "" {
				out = append(out, n)
			}
		}
		return out, nil
	}

	switch strings.ToLower(preset) {
	case "", PresetFull:
		return append([]string(nil), FullInterest...), nil
	case PresetCompact:
		return append([]string(nil), CompactInterest...), nil
	default:
		return nil, fmt.Errorf("unknown interest preset %q", preset)
	}
}
