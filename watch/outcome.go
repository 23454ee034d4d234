package watch

import (
	"time"

	"github.com/code19m/errx"

	"github.com/rise-and-shine/dropsync/filestore"
)

// Outcome is the result of a single poll of a watched file.
type Outcome int

const (
	// NewFile means the file had no recorded mtime yet.
	NewFile Outcome = iota
	// StillWriting means the mtime moved forward since the previous poll.
	StillWriting
	// Stable means the mtime did not move forward since the previous poll.
	Stable
	// Deleted means the file no longer exists.
	Deleted
	// TransientError means the file could not be stat'ed for another reason.
	TransientError
)

func (o Outcome) String() string {
	switch o {
	case NewFile:
		return "new_file"
	case StillWriting:
		return "still_writing"
	case Stable:
		return "stable"
	case Deleted:
		return "deleted"
	case TransientError:
		return "transient_error"
	default:
		return "unknown"
	}
}

// Terminal reports whether the poll loop stops on o.
func (o Outcome) Terminal() bool {
	return o == Stable || o == Deleted
}

// Classify maps one stat result onto an Outcome. prev is the mtime recorded
// by the previous poll, zero if there was none.
func Classify(prev, cur time.Time, statErr error) Outcome {
	switch {
	case statErr != nil && errx.IsCodeIn(statErr, filestore.CodeFileNotFound):
		return Deleted
	case statErr != nil:
		return TransientError
	case prev.IsZero():
		return NewFile
	case cur.After(prev):
		return StillWriting
	default:
		return Stable
	}
}
