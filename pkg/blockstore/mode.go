package blockstore

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Mode is the removal policy of a Store.
type Mode uint8

const (
	// ModeUndefined is the zero Mode. Stores cannot be created with it.
	ModeUndefined Mode = iota
	// Compact keeps live elements packed in [0, Len()). Deleting moves the last element into the
	// hole, so indices are not stable.
	Compact
	// FreeList keeps indices stable for an element's lifetime. Deleted slots are reused oldest
	// first.
	FreeList
)

func (m Mode) String() string {
	switch m {
	case Compact:
		return "compact"
	case FreeList:
		return "freelist"
	default:
		return "undefined"
	}
}

// ParseMode parses the names returned by Mode.String.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "compact":
		return Compact, nil
	case "freelist", "free-list", "free_list":
		return FreeList, nil
	default:
		return 0, eris.Errorf("invalid storage mode %q, must be compact or freelist", s)
	}
}

// UnmarshalText lets env and flag parsers decode a Mode.
func (m *Mode) UnmarshalText(text []byte) error {
	mode, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}
