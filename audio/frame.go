// Package audio produces the per-tick snapshot of analyzer data shared by
// every layer drawn in that tick. The source holds the last real frame while
// playback is frozen so pausing never degrades to a blank or zeroed display.
package audio

// Fallback frame parameters reported when no analyzer is attached.
const (
	DefaultSampleRate = 44100
	DefaultFFTSize    = 2048
)

// Analyzer is the external audio-analysis contract. Implementations expose
// pre-computed byte buffers; no decoding or DSP happens on this side.
type Analyzer interface {
	FrequencyBinCount() int
	ByteFrequencyData(dst []byte)
	ByteTimeDomainData(dst []byte)
	SampleRate() float64
	FFTSize() int
	Playing() bool
}

// Frame is one consistent instant of the analysis signal. A Frame captured
// at the top of a tick is passed unmodified to every layer in that tick.
type Frame struct {
	Frequency  []byte
	TimeDomain []byte
	SampleRate float64
	FFTSize    int
}

// Binding exposes the frame as an expression-environment value for node
// programs.
func (f Frame) Binding() map[string]any {
	return map[string]any{
		"frequency":  f.Frequency,
		"timeDomain": f.TimeDomain,
		"sampleRate": f.SampleRate,
		"fftSize":    f.FFTSize,
	}
}

// Source captures frames from an analyzer and remembers the last live frame
// per signal so a frozen capture can replay it indefinitely.
type Source struct {
	heldFrequency []byte
	heldTime      []byte
	heldRate      float64
	heldFFT       int
	primed        bool
}

// NewSource constructs an empty source. Prime it once the analyzer is ready
// so the very first frame rendered before any playing tick is not empty.
func NewSource() *Source {
	return &Source{}
}

// Prime pulls one frame into the held slots. Call when the underlying audio
// source becomes ready; a nil analyzer is ignored.
func (s *Source) Prime(an Analyzer) {
	if an == nil {
		return
	}
	s.pull(an)
	s.primed = true
}

// Capture returns the tick's frame. With frozen set and playback stopped the
// held buffers are returned untouched, byte-identical across calls, so the
// display holds the last real frame until playback resumes. In every other
// case fresh bytes are pulled into new buffers and copied into the held
// slots. Never fails: an absent analyzer yields a fixed silent fallback.
func (s *Source) Capture(an Analyzer, frozen bool) Frame {
	if an == nil {
		return Frame{
			Frequency:  []byte{},
			TimeDomain: []byte{},
			SampleRate: DefaultSampleRate,
			FFTSize:    DefaultFFTSize,
		}
	}

	playing := !frozen || an.Playing()
	if playing || !s.primed {
		return s.pull(an)
	}
	return Frame{
		Frequency:  s.heldFrequency,
		TimeDomain: s.heldTime,
		SampleRate: s.heldRate,
		FFTSize:    s.heldFFT,
	}
}

func (s *Source) pull(an Analyzer) Frame {
	bins := an.FrequencyBinCount()
	if bins < 0 {
		bins = 0
	}
	frame := Frame{
		Frequency:  make([]byte, bins),
		TimeDomain: make([]byte, bins),
		SampleRate: an.SampleRate(),
		FFTSize:    an.FFTSize(),
	}
	an.ByteFrequencyData(frame.Frequency)
	an.ByteTimeDomainData(frame.TimeDomain)

	if len(s.heldFrequency) != bins {
		s.heldFrequency = make([]byte, bins)
		s.heldTime = make([]byte, bins)
	}
	copy(s.heldFrequency, frame.Frequency)
	copy(s.heldTime, frame.TimeDomain)
	s.heldRate = frame.SampleRate
	s.heldFFT = frame.FFTSize
	s.primed = true
	return frame
}
