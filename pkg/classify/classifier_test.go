package classify

import (
	"testing"

	"github.com/prospexa-ai/platform/pkg/common/models"
)

func TestClassifyKeywords(t *testing.T) {
	cases := []struct {
		text string
		want models.ReplyCategory
	}{
		{"Thanks, I'm interested - let's talk next week", models.ReplyPositive},
		{"Please remove me from your list", models.ReplyNegative},
		{"Not interested, thanks", models.ReplyNegative},
		{"I am out of office until Monday", models.ReplyOutOfOffice},
		{"This is an automatic reply. Your message has been received.", models.ReplyAutoReply},
		{"Who is this regarding?", models.ReplyNeutral},
	}

	for _, tc := range cases {
		got := ClassifyKeywords(tc.text)
		if got.Category != tc.want {
			t.Errorf("%q: got %s, want %s", tc.text, got.Category, tc.want)
		}
	}
}

func TestNegativeMarkerWinsOverPositive(t *testing.T) {
	// "not interested" contains "interested"; negation must win.
	got := ClassifyKeywords("We are not interested in this")
	if got.Category != models.ReplyNegative {
		t.Fatalf("got %s, want NEGATIVE", got.Category)
	}
}

func TestOutOfOfficeWinsOverPositivePhrasing(t *testing.T) {
	got := ClassifyKeywords("I'm out of office but interested, let's talk when I'm back")
	if got.Category != models.ReplyOutOfOffice {
		t.Fatalf("got %s, want OUT_OF_OFFICE", got.Category)
	}
}
