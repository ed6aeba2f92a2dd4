package transcription

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	jobNameTimeFormat = "20060102150405"
	maxJobNameLength  = 200
)

var invalidJobNameChars = regexp.MustCompile(`[^0-9A-Za-z._-]`)

// NameGenerator builds job names of the form <prefix>_<timestamp>[_<suffix>].
// The timestamp has one-second resolution; the suffix keeps names distinct
// when several jobs start within the same second.
type NameGenerator struct {
	Prefix string
	Now    func() time.Time
	Suffix func() string
}

// NewNameGenerator returns a generator using the wall clock and a random
// eight character suffix
func NewNameGenerator(prefix string) *NameGenerator {
	return &NameGenerator{
		Prefix: prefix,
		Now:    time.Now,
		Suffix: randomSuffix,
	}
}

// Next returns a new job name
func (g *NameGenerator) Next() string {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}

	name := fmt.Sprintf("%s_%s", g.Prefix, now().Format(jobNameTimeFormat))
	if g.Suffix != nil {
		if s := g.Suffix(); s != "" {
			name += "_" + s
		}
	}

	name = invalidJobNameChars.ReplaceAllString(name, "-")
	if len(name) > maxJobNameLength {
		name = name[len(name)-maxJobNameLength:]
	}
	return name
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
