// Copyright 2025 The cogkernel Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package primitive

import (
	"regexp"
	"strings"
	"time"

	"github.com/azzindani/cogkernel/pkg/kernschema"
)

// GeoAnchor resolves a place name to a canonical identifier; it is
// injected so the kernel does not embed a gazetteer.
type GeoAnchor interface {
	Resolve(place string) (string, bool)
}

// TaskContext biases relative-time resolution, e.g. "financial" treats
// "last week" as the last closed business week rather than the
// calendar week (spec.md §4.2.3).
type TaskContext string

const (
	TaskContextGeneral   TaskContext = "general"
	TaskContextFinancial TaskContext = "financial"
)

var relativeExprRE = regexp.MustCompile(`(?i)\b(today|yesterday|tomorrow|last week|this week|next week|last month|this month)\b`)

// AnchorSpatiotemporal resolves relative time expressions against now
// to absolute UTC ranges and place names against an optional geo
// anchor, adapting ambiguity by task context.
func AnchorSpatiotemporal(text string, now time.Time, taskCtx TaskContext, geo GeoAnchor) (*kernschema.TimeRange, string) {
	now = now.UTC()
	match := relativeExprRE.FindString(strings.ToLower(text))

	var tr *kernschema.TimeRange
	switch match {
	case "today":
		tr = dayRange(now)
	case "yesterday":
		tr = dayRange(now.AddDate(0, 0, -1))
	case "tomorrow":
		tr = dayRange(now.AddDate(0, 0, 1))
	case "this week":
		tr = weekRange(now, taskCtx, 0)
	case "last week":
		tr = weekRange(now, taskCtx, -1)
	case "next week":
		tr = weekRange(now, taskCtx, 1)
	case "last month":
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
		tr = &kernschema.TimeRange{Start: first, End: first.AddDate(0, 1, 0).Add(-time.Nanosecond)}
	case "this month":
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		tr = &kernschema.TimeRange{Start: first, End: first.AddDate(0, 1, 0).Add(-time.Nanosecond)}
	}

	place := ""
	if geo != nil {
		for _, word := range strings.Fields(text) {
			if resolved, ok := geo.Resolve(word); ok {
				place = resolved
				break
			}
		}
	}
	return tr, place
}

func dayRange(t time.Time) *kernschema.TimeRange {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &kernschema.TimeRange{Start: start, End: start.AddDate(0, 0, 1).Add(-time.Nanosecond)}
}

// weekRange resolves "this/last/next week" relative to now. In
// financial task context the week is the last *closed* business week
// (Mon-Fri, ending the prior Friday) rather than the calendar week.
func weekRange(now time.Time, taskCtx TaskContext, offset int) *kernschema.TimeRange {
	if taskCtx == TaskContextFinancial {
		// Find the most recent Friday at or before now, then step back
		// full weeks by offset (offset=-1 means the week before that).
		daysSinceFriday := (int(now.Weekday()) - int(time.Friday) + 7) % 7
		lastFriday := now.AddDate(0, 0, -daysSinceFriday)
		lastFriday = time.Date(lastFriday.Year(), lastFriday.Month(), lastFriday.Day(), 23, 59, 59, 0, time.UTC)
		end := lastFriday.AddDate(0, 0, 7*offset)
		start := end.AddDate(0, 0, -4) // Monday of that business week
		start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
		return &kernschema.TimeRange{Start: start, End: end}
	}

	weekday := int(now.Weekday())
	if weekday == 0 {
		weekday = 7 // ISO: Sunday is day 7
	}
	monday := now.AddDate(0, 0, -(weekday - 1))
	monday = time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, time.UTC)
	monday = monday.AddDate(0, 0, 7*offset)
	return &kernschema.TimeRange{Start: monday, End: monday.AddDate(0, 0, 7).Add(-time.Nanosecond)}
}
