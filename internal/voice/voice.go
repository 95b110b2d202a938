// Package voice implements spoken-passphrase voter identification: multi-sample
// enrollment of MFCC frame sequences and dynamic-time-warping identification
// against every stored utterance.
//
// Enrollment accumulates utterances per voter; once [RequiredSamples] have
// been collected the enrollment is complete and an aggregate template (the
// column-wise mean over all frames of all utterances) is maintained.
// Identification ignores the template and compares the query against the raw
// stored utterances, which preserves the timing information DTW needs.
package voice

import (
	"errors"
	"fmt"
	"time"

	"github.com/verivote/verivote/pkg/identity"
)

const (
	// RequiredSamples is the number of enrollment utterances needed before an
	// enrollment counts as complete.
	RequiredSamples = 3

	// MatchThreshold is the normalized DTW distance below which (strictly) the
	// closest stored utterance counts as an identification. Hand-tuned for
	// 13-coefficient MFCC frames; do not assume it generalizes to other
	// feature extractors.
	MatchThreshold = 25.0

	// StatusComplete is the enrollment status reported once RequiredSamples
	// utterances have been stored.
	StatusComplete = "complete"
)

var (
	// ErrMissingField indicates a required request field was absent.
	ErrMissingField = errors.New("voice: missing required field")

	// ErrNoVoiceData indicates an identification query with no frames.
	ErrNoVoiceData = errors.New("voice: no voice data in query")

	// ErrInconsistentFrames indicates frames whose dimensionality disagrees
	// with the frames already stored for the deployment.
	ErrInconsistentFrames = errors.New("voice: inconsistent frame dimensions")
)

// Frame is one fixed-dimension feature vector (MFCC coefficients) extracted
// from a short audio window. The dimension is consistent within one
// deployment, nominally 13.
type Frame []float64

// Utterance is an ordered sequence of frames representing one spoken sample.
type Utterance []Frame

// Enrollment is the accumulated voice state for one voter: every utterance
// submitted so far plus the aggregate template once complete.
//
// Enrollment keeps accepting utterances past [RequiredSamples]; every
// additional sample is appended and the template recomputed. Whether this
// rolling recalibration is intentional is an open question inherited from the
// deployed behavior, which is preserved here rather than frozen at
// completion.
type Enrollment struct {
	VoterID string
	identity.Profile
	Utterances []Utterance
	Template   Frame // nil until the enrollment is complete
	UpdatedAt  time.Time
}

// Complete reports whether enough samples have been collected.
func (e *Enrollment) Complete() bool {
	return len(e.Utterances) >= RequiredSamples
}

// Status returns the caller-facing enrollment status string.
func (e *Enrollment) Status() string {
	if e.Complete() {
		return StatusComplete
	}
	return fmt.Sprintf("waiting_for_%d_more", RequiredSamples-len(e.Utterances))
}

// RecomputeTemplate rebuilds the aggregate template as the column-wise mean
// over all frames of all stored utterances flattened together (not an average
// of per-utterance means). All stored frames share one dimension, which
// [ValidateUtterance] enforces at append time.
func (e *Enrollment) RecomputeTemplate() {
	var (
		sum   []float64
		count int
	)
	for _, utt := range e.Utterances {
		for _, frame := range utt {
			if sum == nil {
				sum = make([]float64, len(frame))
			}
			for i, v := range frame {
				sum[i] += v
			}
			count++
		}
	}
	if count == 0 {
		e.Template = nil
		return
	}
	tmpl := make(Frame, len(sum))
	for i, v := range sum {
		tmpl[i] = v / float64(count)
	}
	e.Template = tmpl
}

// ValidateUtterance checks that utt is non-empty, that every frame is
// non-empty, and that all frames share one dimension. When wantDim is
// non-zero the frames must also match it (the dimension established by
// earlier samples).
func ValidateUtterance(utt Utterance, wantDim int) error {
	if len(utt) == 0 {
		return fmt.Errorf("%w: utterance", ErrMissingField)
	}
	dim := wantDim
	for i, frame := range utt {
		if len(frame) == 0 {
			return fmt.Errorf("%w: frame %d is empty", ErrInconsistentFrames, i)
		}
		if dim == 0 {
			dim = len(frame)
		}
		if len(frame) != dim {
			return fmt.Errorf("%w: frame %d has %d coefficients, want %d", ErrInconsistentFrames, i, len(frame), dim)
		}
	}
	return nil
}

// Match is the transient result of one identification request. Similarity is
// 1 - distance/[MatchThreshold] on a match and 0 otherwise.
type Match struct {
	Matched    bool
	VoterID    string
	Distance   float64
	Similarity float64
	Profile    identity.Profile
}

// EnrollResult reports the outcome of one enrollment call, echoing the
// current demographic fields.
type EnrollResult struct {
	VoterID string
	Status  string
	Samples int
	Profile identity.Profile
}
