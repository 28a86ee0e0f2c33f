package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const marker = "(touch /tmp/report.txt # SDQScript)"

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Kind
	}{
		{
			name: "cron touch line",
			line: "Oct 18 10:05:01 host CRON[2211]: (root) CMD (touch /tmp/report.txt # SDQScript)\n",
			want: Touch,
		},
		{
			name: "touch wins over failure keyword",
			line: "Oct 18 10:05:01 host CRON[2211]: ERROR (root) CMD (touch /tmp/report.txt # SDQScript)\n",
			want: Touch,
		},
		{
			name: "error keyword",
			line: "Oct 18 10:05:02 host kernel: ERROR disk timeout\n",
			want: Failure,
		},
		{
			name: "warning keyword",
			line: "Oct 18 10:05:02 host nfsd: WARNING stale handle\n",
			want: Failure,
		},
		{
			name: "warn keyword",
			line: "Oct 18 10:05:02 host app[1]: WARN slow\n",
			want: Failure,
		},
		{
			name: "keyword inside a word still matches",
			line: "Oct 18 10:05:02 host app[1]: FORWARNED\n",
			want: Failure,
		},
		{
			name: "lowercase keyword is ignored",
			line: "Oct 18 10:05:02 host app[1]: error: lowercase\n",
			want: Ignore,
		},
		{
			name: "different report path is not a touch",
			line: "Oct 18 10:05:01 host CRON[2211]: (root) CMD (touch /tmp/other.txt # SDQScript)\n",
			want: Ignore,
		},
		{
			name: "marker case differs",
			line: "Oct 18 10:05:01 host CRON[2211]: (root) CMD (TOUCH /tmp/report.txt # SDQScript)\n",
			want: Ignore,
		},
		{
			name: "plain line",
			line: "Oct 18 10:05:03 host systemd[1]: Started Session 4.\n",
			want: Ignore,
		},
		{
			name: "empty line",
			line: "",
			want: Ignore,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.line, marker, DefaultFailureKeywords)
			assert.Equal(t, tt.want, got)

			c := New(marker, nil)
			assert.Equal(t, tt.want, c.Classify(tt.line))
		})
	}
}

func TestClassify_EmptyMarkerNeverTouches(t *testing.T) {
	assert.Equal(t, Ignore, Classify("anything", "", DefaultFailureKeywords))
	assert.Equal(t, Failure, Classify("ERROR here", "", DefaultFailureKeywords))
}

func TestClassifier_CustomKeywords(t *testing.T) {
	c := New(marker, []string{"CRIT"})
	assert.Equal(t, Failure, c.Classify("kernel: CRIT overheating"))
	assert.Equal(t, Ignore, c.Classify("kernel: ERROR ignored by custom list"))
}

func TestClassifier_CopiesKeywords(t *testing.T) {
	kw := []string{"CRIT"}
	c := New(marker, kw)
	kw[0] = "OTHER"
	assert.Equal(t, Failure, c.Classify("CRIT"))
}

func TestTouchMarker(t *testing.T) {
	assert.Equal(t, marker, TouchMarker("/tmp/report.txt", DefaultComment))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "touch", Touch.String())
	assert.Equal(t, "failure", Failure.String())
	assert.Equal(t, "ignore", Ignore.String())
}

func TestClassifier_FailureKeyword(t *testing.T) {
	c := New(marker, nil)
	assert.Equal(t, "WARNING", c.FailureKeyword("nfsd: WARNING stale"), "list order decides")
	assert.Equal(t, "ERROR", c.FailureKeyword("ERROR and WARN"))
	assert.Equal(t, "", c.FailureKeyword("all good"))
}
