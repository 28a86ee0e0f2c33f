package classify

import "strings"

// Kind is the outcome of classifying one log line.
type Kind int

const (
	Ignore Kind = iota
	Touch
	Failure
)

func (k Kind) String() string {
	switch k {
	case Touch:
		return "touch"
	case Failure:
		return "failure"
	default:
		return "ignore"
	}
}

// DefaultFailureKeywords are matched verbatim, case-sensitive.
var DefaultFailureKeywords = []string{"ERROR", "WARNING", "WARN"}

// DefaultComment tags the cron entry and ends the touch marker.
const DefaultComment = "SDQScript"

// TouchMarker returns the substring cron writes to syslog when it runs
// `touch <reportPath>` tagged with comment.
func TouchMarker(reportPath, comment string) string {
	return "(touch " + reportPath + " # " + comment + ")"
}

// Classify matches line against marker first and keywords second. An empty
// marker never matches.
func Classify(line, marker string, keywords []string) Kind {
	if marker != "" && strings.Contains(line, marker) {
		return Touch
	}
	for _, kw := range keywords {
		if kw != "" && strings.Contains(line, kw) {
			return Failure
		}
	}
	return Ignore
}

// Classifier binds a marker and keyword list for repeated use.
type Classifier struct {
	marker   string
	keywords []string
}

// New returns a Classifier. A nil keywords slice selects DefaultFailureKeywords.
func New(marker string, keywords []string) Classifier {
	if keywords == nil {
		keywords = DefaultFailureKeywords
	}
	kw := make([]string, len(keywords))
	copy(kw, keywords)
	return Classifier{marker: marker, keywords: kw}
}

// Classify applies the bound marker and keywords to line.
func (c Classifier) Classify(line string) Kind {
	return Classify(line, c.marker, c.keywords)
}

// Marker returns the bound touch marker.
func (c Classifier) Marker() string {
	return c.marker
}

// FailureKeyword returns the first bound keyword found in line, or "".
func (c Classifier) FailureKeyword(line string) string {
	for _, kw := range c.keywords {
		if kw != "" && strings.Contains(line, kw) {
			return kw
		}
	}
	return ""
}
