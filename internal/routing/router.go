// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package routing assigns programme titles to output channels.
package routing

import (
	"fmt"
	"strings"

	"github.com/ManuGH/tvsched/internal/schedule"
)

// Rule publishes titles containing Keyword on Channel only.
type Rule struct {
	Keyword string
	Channel string
}

// Router is a pure title classifier. Rules are evaluated in order and the first
// matching keyword wins; titles matching no rule go to every Default channel.
type Router struct {
	rules    []Rule
	defaults []string
}

// New builds a Router. Keywords are matched case- and accent-insensitively.
func New(rules []Rule, defaults []string) (*Router, error) {
	if len(defaults) == 0 {
		return nil, fmt.Errorf("routing: at least one default channel is required")
	}
	r := &Router{defaults: append([]string(nil), defaults...)}
	for _, rule := range rules {
		kw := schedule.Fold(strings.TrimSpace(rule.Keyword))
		if kw == "" || strings.TrimSpace(rule.Channel) == "" {
			return nil, fmt.Errorf("routing: rule %+v needs keyword and channel", rule)
		}
		r.rules = append(r.rules, Rule{Keyword: kw, Channel: rule.Channel})
	}
	return r, nil
}

// Route returns the channels title is published on.
func (r *Router) Route(title string) []string {
	t := schedule.Fold(title)
	for _, rule := range r.rules {
		if strings.Contains(t, rule.Keyword) {
			return []string{rule.Channel}
		}
	}
	return append([]string(nil), r.defaults...)
}

// Keywords lists the configured keywords in evaluation order.
func (r *Router) Keywords() []string {
	out := make([]string, 0, len(r.rules))
	for _, rule := range r.rules {
		out = append(out, rule.Keyword)
	}
	return out
}
