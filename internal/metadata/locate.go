package metadata

import (
	"fmt"

	"framecloak/internal/frames"
	"framecloak/internal/services"
)

const (
	// DefaultWindow is how many trailing frames are scanned for a record.
	DefaultWindow = 5
	// DefaultFallbackFrames is how many leading frames are assumed to carry
	// chunks when no record is found.
	DefaultFallbackFrames = 15
)

// Strategy names reported in a Resolution.
const (
	StrategyMetadata = "metadata"
	StrategyFallback = "fallback"
)

// Locate scans frames max(0, N-window)..N-1 in order and returns the first
// record found, with the index of the frame carrying it. Frames that fail to
// load or reveal are skipped.
func Locate(src frames.Source, revealer Revealer, window int) (Record, int, bool) {
	n := src.Len()
	for i := max(0, n-window); i < n; i++ {
		img, err := src.Load(i)
		if err != nil {
			continue
		}
		text, ok, err := revealer.Reveal(img)
		if err != nil || !ok || text == "" {
			continue
		}
		if rec, ok := Parse(text); ok {
			return rec, i, true
		}
	}
	return nil, -1, false
}

// Resolution reports how candidate frames were chosen.
type Resolution struct {
	Strategy string
	Indices  []int
	// MetadataFrame is the frame the record was read from, or -1.
	MetadataFrame int
}

// Strategy produces candidate chunk frames for a sequence.
type Strategy interface {
	Name() string
	Candidates(src frames.Source, revealer Revealer) (Resolution, bool)
}

// TrailerStrategy reads the record from the trailing Window frames.
type TrailerStrategy struct {
	Window int
}

func (TrailerStrategy) Name() string { return StrategyMetadata }

func (s TrailerStrategy) Candidates(src frames.Source, revealer Revealer) (Resolution, bool) {
	window := s.Window
	if window <= 0 {
		window = DefaultWindow
	}
	rec, at, ok := Locate(src, revealer, window)
	if !ok {
		return Resolution{}, false
	}
	return Resolution{Strategy: StrategyMetadata, Indices: []int(rec), MetadataFrame: at}, true
}

// DefaultRangeStrategy assumes chunks sit in frames 0..Count-1. It exists for
// videos written before records were embedded and may recover garbage.
type DefaultRangeStrategy struct {
	Count int
}

func (DefaultRangeStrategy) Name() string { return StrategyFallback }

func (s DefaultRangeStrategy) Candidates(frames.Source, Revealer) (Resolution, bool) {
	count := s.Count
	if count <= 0 {
		count = DefaultFallbackFrames
	}
	indices := make([]int, count)
	for i := range indices {
		indices[i] = i
	}
	return Resolution{Strategy: StrategyFallback, Indices: indices, MetadataFrame: -1}, true
}

// Lookup tries strategies in order.
type Lookup struct {
	Strategies []Strategy
}

// NewLookup returns the record-then-fallback lookup.
func NewLookup(window, fallback int) Lookup {
	return Lookup{Strategies: []Strategy{
		TrailerStrategy{Window: window},
		DefaultRangeStrategy{Count: fallback},
	}}
}

// Resolve returns the first strategy's candidates.
func (l Lookup) Resolve(src frames.Source, revealer Revealer) (Resolution, error) {
	for _, s := range l.Strategies {
		if res, ok := s.Candidates(src, revealer); ok {
			return res, nil
		}
	}
	return Resolution{}, services.Wrap(
		services.ErrNotFound,
		"metadata",
		"resolve",
		fmt.Sprintf("no strategy produced candidates (%d configured)", len(l.Strategies)),
		nil,
	)
}
