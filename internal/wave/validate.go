package wave

import (
	"errors"
	"fmt"
)

// Voice-clone sample policy. A sample shorter than the enforced minimum is
// rejected before any upstream call; a non-ideal sample rate or an overlong
// sample is accepted with an advisory warning attached.
const (
	// MinSampleSeconds is the enforced lower bound on sample duration. The
	// user-facing recommendation reads "5-12 s", but the binding floor is 4.
	MinSampleSeconds = 4.0

	// MaxRecommendedSeconds is the advisory upper bound on sample duration.
	MaxRecommendedSeconds = 12.0

	// IdealSampleRate is the sample rate the cloning model is trained on.
	IdealSampleRate = 16000
)

// Warning message formats.
const (
	warnFmtSampleRate = "sample rate is %d Hz; %d Hz gives the best cloning quality"
	warnFmtTooLong    = "sample is %.1fs long; 5-12s is recommended"
)

// ErrSampleTooShort indicates the sample duration is under the enforced
// minimum for voice cloning.
var ErrSampleTooShort = errors.New("sample too short for voice cloning")

// Validate applies the upload acceptance policy to a parsed sample. It
// returns a hard error for samples under the minimum duration, and advisory
// warnings (never errors) for a non-ideal sample rate or an overlong sample.
func Validate(info Info) ([]string, error) {
	if info.DurationSeconds < MinSampleSeconds {
		return nil, fmt.Errorf(
			"%w: got %.1fs, need at least %.0fs",
			ErrSampleTooShort, info.DurationSeconds, MinSampleSeconds,
		)
	}

	var warnings []string

	if info.SampleRate != IdealSampleRate {
		warnings = append(warnings, fmt.Sprintf(
			warnFmtSampleRate, info.SampleRate, IdealSampleRate,
		))
	}

	if info.DurationSeconds > MaxRecommendedSeconds {
		warnings = append(warnings, fmt.Sprintf(
			warnFmtTooLong, info.DurationSeconds,
		))
	}

	return warnings, nil
}
