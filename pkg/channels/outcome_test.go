package channels

import (
	"errors"
	"net/http"
	"testing"

	"github.com/prospexa-ai/platform/pkg/common/models"
)

func TestClassifySMTPError(t *testing.T) {
	perm := classifySMTPError(errors.New("550 5.1.1 user unknown"))
	if perm.Outcome != models.OutcomeFatal {
		t.Fatalf("5xx rejection should be fatal, got %s", perm.Outcome)
	}

	transient := classifySMTPError(errors.New("dial tcp: connection refused"))
	if transient.Outcome != models.OutcomeRecoverable {
		t.Fatalf("connection error should be recoverable, got %s", transient.Outcome)
	}
}

func TestClassifyNetworkResponse(t *testing.T) {
	cases := []struct {
		status int
		body   string
		want   models.Outcome
	}{
		{http.StatusOK, `{"message_id":"m-1"}`, models.OutcomeDelivered},
		{http.StatusTooManyRequests, "", models.OutcomeRecoverable},
		{http.StatusForbidden, "", models.OutcomeFatal},
		{http.StatusGone, "", models.OutcomeFatal},
		{http.StatusBadRequest, "bad handle", models.OutcomeFatal},
		{http.StatusBadGateway, "", models.OutcomeRecoverable},
	}
	for _, tc := range cases {
		got := classifyNetworkResponse(tc.status, []byte(tc.body))
		if got.Outcome != tc.want {
			t.Errorf("status %d: got %s, want %s", tc.status, got.Outcome, tc.want)
		}
	}

	ok := classifyNetworkResponse(http.StatusCreated, []byte(`{"message_id":"m-9"}`))
	if ok.ProviderMessageID != "m-9" {
		t.Fatalf("expected provider id from response, got %q", ok.ProviderMessageID)
	}
}
