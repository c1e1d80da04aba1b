// Package search drives Google searches through a real Chrome instance,
// presenting a persistent browser identity and recovering from
// anti-automation challenges.
package search

import (
	"time"

	"github.com/serpdriver/serpdriver/internal/extract"
)

// FailureTitle marks the diagnostic result embedded in a failed response,
// so downstream consumers reading only results still see the failure.
const FailureTitle = "SEARCH FAILED"

// Result is one organic search result.
type Result struct {
	Rank    int    `json:"rank"`
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet,omitempty"`
}

// Response is the outcome of one search run.
type Response struct {
	Query    string        `json:"query"`
	Results  []Result      `json:"results"`
	Strategy string        `json:"strategy,omitempty"`
	Duration time.Duration `json:"duration"`
	// Recoveries counts how many challenge recoveries the run consumed.
	Recoveries int    `json:"recoveries,omitempty"`
	Failed     bool   `json:"failed,omitempty"`
	Error      string `json:"error,omitempty"`
}

// failureResponse wraps an error as a response whose single result carries
// the diagnostic marker.
func failureResponse(query string, err error, duration time.Duration, recoveries int) *Response {
	return &Response{
		Query: query,
		Results: []Result{{
			Rank:    1,
			Title:   FailureTitle,
			Snippet: err.Error(),
		}},
		Duration:   duration,
		Recoveries: recoveries,
		Failed:     true,
		Error:      err.Error(),
	}
}

func fromExtracted(results []extract.Result) []Result {
	out := make([]Result, len(results))
	for i, r := range results {
		out[i] = Result{Rank: r.Rank, Title: r.Title, Link: r.Link, Snippet: r.Snippet}
	}
	return out
}
