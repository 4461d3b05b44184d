// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package source

import (
	"strings"
	"time"

	"github.com/ManuGH/tvsched/internal/schedule"
)

// dayNames maps folded Spanish day names to Monday=0 .. Sunday=6.
var dayNames = map[string]int{
	"lunes":     0,
	"martes":    1,
	"miercoles": 2,
	"jueves":    3,
	"viernes":   4,
	"sabado":    5,
	"domingo":   6,
}

// WeekdayIndex returns the weekday named by s (Monday=0), or -1. Case and
// accents are ignored, so "Miércoles" and "MIERCOLES" both give 2.
func WeekdayIndex(s string) int {
	if i, ok := dayNames[schedule.Fold(strings.TrimSpace(s))]; ok {
		return i
	}
	return -1
}

// dateWords may follow a day name in a heading such as "Lunes 6 de enero".
var dateWords = map[string]bool{
	"de": true, "del": true, "hoy": true,
	"enero": true, "febrero": true, "marzo": true, "abril": true,
	"mayo": true, "junio": true, "julio": true, "agosto": true,
	"septiembre": true, "setiembre": true, "octubre": true,
	"noviembre": true, "diciembre": true,
}

// leadingWeekday recognises day headings. The day name must come first and
// anything after it must be a date, so "Domingo Deportivo" is a title.
func leadingWeekday(line string) int {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return -1
	}
	day := WeekdayIndex(strings.TrimRight(fields[0], ":,."))
	if day < 0 {
		return -1
	}
	for _, f := range fields[1:] {
		f = schedule.Fold(strings.Trim(f, ":,.()"))
		if f == "" || dateWords[f] || isDigits(f) {
			continue
		}
		if strings.Count(f, "/") > 0 && isDigits(strings.ReplaceAll(f, "/", "")) {
			continue
		}
		return -1
	}
	return day
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// MondayIndex is t's weekday with Monday=0.
func MondayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
