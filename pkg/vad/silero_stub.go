//go:build !silero

package vad

// NewSilero reports that the Silero engine is unavailable in this build.
func NewSilero(Config) (Classifier, error) {
	return nil, ErrSileroUnavailable
}
