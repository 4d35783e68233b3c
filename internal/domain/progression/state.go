package progression

import (
	"encoding/binary"
	"math"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/fausterrex/gradegoal/internal/domain/model"
)

// State is the accumulator a polling caller threads through successive ticks.
// The zero State means "nothing rendered yet".
type State struct {
	Fingerprint uint64
	Series      []Point
}

// Tick recomputes the series and reports whether it differs from prev.
func (a *Aggregator) Tick(prev State, samples []model.ScoreSample, current float64) (State, bool) {
	series := a.Weekly(samples, current)
	next := State{Fingerprint: Fingerprint(series), Series: series}
	return next, next.Fingerprint != prev.Fingerprint
}

// Fingerprint hashes everything a chart renders from the series.
func Fingerprint(points []Point) uint64 {
	d := xxhash.New()
	var buf [8]byte
	for _, p := range points {
		_, _ = d.WriteString(p.WeekLabel)
		binary.LittleEndian.PutUint64(buf[:], uint64(p.WeekStart.Unix()))
		_, _ = d.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(p.Value))
		_, _ = d.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], uint64(p.SampleCount))
		_, _ = d.Write(buf[:])
	}
	return d.Sum64()
}

// Hex renders the fingerprint as bare lowercase hex.
func (s State) Hex() string {
	return strconv.FormatUint(s.Fingerprint, 16)
}

// ETag renders the fingerprint as a quoted HTTP entity tag.
func (s State) ETag() string {
	return `"` + s.Hex() + `"`
}

// StateFromETag rebuilds the fingerprint part of a State from an entity tag
// previously produced by ETag. Weak tags are accepted.
func StateFromETag(tag string) (State, bool) {
	tag = strings.TrimPrefix(strings.TrimSpace(tag), "W/")
	tag = strings.Trim(tag, `"`)
	fp, err := strconv.ParseUint(tag, 16, 64)
	if err != nil {
		return State{}, false
	}
	return State{Fingerprint: fp}, true
}
