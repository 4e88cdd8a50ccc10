package worker

// PlanResumeOffset decides where a re-dispatched job should continue.
//
// Resume is safe only when the persisted counters prove whole batches were
// completed: processedRecords must be a positive multiple of the batch size
// and below the known total (an unknown total does not block resuming). Any
// other counter state restarts at offset 0, which at worst replays work that
// idempotent point ids absorb. The decision is a pure function of persisted
// counters, so a cold restart after a crash behaves exactly like the crash
// mid-run did.
//
// Known gap: the plan assumes the datasource's query template and batch size
// are unchanged since the job first ran. A template edit between crash and
// redelivery can make the offset point at different rows. Detecting that would
// require persisting a template fingerprint on the job.
func PlanResumeOffset(processedRecords, batchSize int, totalRecords *int) int {
	if batchSize <= 0 || processedRecords <= 0 {
		return 0
	}
	if processedRecords%batchSize != 0 {
		return 0
	}
	if totalRecords != nil && processedRecords >= *totalRecords {
		return 0
	}
	return processedRecords
}
