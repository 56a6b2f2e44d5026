package fetch

import "time"

// Summarize tallies results into a Summary. It does not reorder results.
func Summarize(batchID string, results []Result, totalTime time.Duration, proxyType string) Summary {
	successful := 0
	for _, r := range results {
		if r.Success {
			successful++
		}
	}
	if results == nil {
		results = []Result{}
	}
	return Summary{
		BatchID:          batchID,
		Results:          results,
		Total:            len(results),
		Successful:       successful,
		Failed:           len(results) - successful,
		TotalTimeSeconds: totalTime.Seconds(),
		ProxyTypeUsed:    proxyType,
	}
}
