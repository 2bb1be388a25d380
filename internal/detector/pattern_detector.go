package detector

import (
	"github.com/loykin/revivr/internal/proctable"
)

// PatternDetector detects the supervised process by scanning the process
// table for a command-line substring. This is the compatibility fallback;
// a pidfile match is preferred because a substring can hit unrelated
// processes that happen to share the pattern.
type PatternDetector struct {
	Pattern string
}

func (d PatternDetector) Alive() (bool, error) {
	matches, err := proctable.FindByPattern(d.Pattern)
	if err != nil {
		return false, err
	}
	return len(matches) > 0, nil
}

func (d PatternDetector) Describe() string { return "pattern:" + d.Pattern }
