// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package source

import (
	"net/url"
	"sort"
	"strings"
	"time"
)

const (
	datePlaceholder = "{date}"
	cityPlaceholder = "{city}"
	dateLayout      = "2006-01-02"
)

// Requests expands a URL template into one request per (date, city).
// Without placeholders it returns a single multi-day request. today must be
// midnight in the guide zone.
func Requests(template string, cities map[string]string, today time.Time, days int) []Request {
	hasDate := strings.Contains(template, datePlaceholder)
	hasCity := strings.Contains(template, cityPlaceholder)

	dates := []time.Time{{}}
	if hasDate {
		dates = dates[:0]
		for d := 0; d < days; d++ {
			dates = append(dates, today.AddDate(0, 0, d))
		}
	}

	cityNames := []string{""}
	if hasCity {
		cityNames = make([]string, 0, len(cities))
		for c := range cities {
			cityNames = append(cityNames, c)
		}
		sort.Strings(cityNames)
	}

	out := make([]Request, 0, len(dates)*len(cityNames))
	for _, d := range dates {
		for _, c := range cityNames {
			u := template
			if hasDate {
				u = strings.ReplaceAll(u, datePlaceholder, d.Format(dateLayout))
			}
			req := Request{Date: d, Today: today, Days: days}
			if hasCity {
				u = strings.ReplaceAll(u, cityPlaceholder, url.PathEscape(c))
				req.City = c
				req.Channel = cities[c]
			}
			req.URL = u
			out = append(out, req)
		}
	}
	return out
}
