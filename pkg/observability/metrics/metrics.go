package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

var (
	cyclesCompleted     atomic.Int64
	cyclesSkipped       atomic.Int64
	stepFailures        atomic.Int64
	messagesDelivered   atomic.Int64
	messagesFailed      atomic.Int64
	messagesRetried     atomic.Int64
	repliesIngested     atomic.Int64
	repliesPositive     atomic.Int64
	leadsTimedOut       atomic.Int64
	campaignsPaused     atomic.Int64
	alertsDispatched    atomic.Int64
	rateLimitRejections atomic.Int64
)

func CycleCompleted()     { cyclesCompleted.Add(1) }
func CycleSkipped()       { cyclesSkipped.Add(1) }
func StepFailed()         { stepFailures.Add(1) }
func MessageDelivered()   { messagesDelivered.Add(1) }
func MessageFailed()      { messagesFailed.Add(1) }
func MessageRetried()     { messagesRetried.Add(1) }
func ReplyIngested()      { repliesIngested.Add(1) }
func ReplyPositive()      { repliesPositive.Add(1) }
func LeadTimedOut()       { leadsTimedOut.Add(1) }
func CampaignPaused()     { campaignsPaused.Add(1) }
func AlertDispatched()    { alertsDispatched.Add(1) }
func RateLimitRejection() { rateLimitRejections.Add(1) }

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeCounter(w, "prospexa_outreach_cycles_completed_total", "Number of orchestrator cycles completed by this worker.", cyclesCompleted.Load())
	writeCounter(w, "prospexa_outreach_cycles_skipped_total", "Number of cycles skipped because another worker held the lock.", cyclesSkipped.Load())
	writeCounter(w, "prospexa_outreach_step_failures_total", "Number of cycle steps that failed and were contained.", stepFailures.Load())
	writeCounter(w, "prospexa_outreach_messages_delivered_total", "Number of outreach messages delivered on any channel.", messagesDelivered.Load())
	writeCounter(w, "prospexa_outreach_messages_failed_total", "Number of outreach messages that ended FAILED or BOUNCED.", messagesFailed.Load())
	writeCounter(w, "prospexa_outreach_messages_retried_total", "Number of outreach messages rescheduled with backoff.", messagesRetried.Load())
	writeCounter(w, "prospexa_outreach_replies_ingested_total", "Number of inbound replies ingested from the inbox.", repliesIngested.Load())
	writeCounter(w, "prospexa_outreach_replies_positive_total", "Number of replies classified as positive.", repliesPositive.Load())
	writeCounter(w, "prospexa_outreach_leads_timed_out_total", "Number of leads moved to NURTURE or DEAD by the timeout sweep.", leadsTimedOut.Load())
	writeCounter(w, "prospexa_outreach_campaigns_paused_total", "Number of campaigns paused by rule evaluation.", campaignsPaused.Load())
	writeCounter(w, "prospexa_outreach_alerts_dispatched_total", "Number of human alerts dispatched.", alertsDispatched.Load())
	writeCounter(w, "prospexa_outreach_rate_limit_rejections_total", "Number of sends skipped by the rate limiter.", rateLimitRejections.Load())
}

func writeCounter(w http.ResponseWriter, name, help string, value int64) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s counter\n", name)
	fmt.Fprintf(w, "%s %d\n", name, value)
}
