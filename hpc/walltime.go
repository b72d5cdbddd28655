// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package hpc

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/petenewcomb/sitepool/errs"
)

// FormatWalltime formats a number of hours as "HH:MM:00", rounding the
// fractional hour to whole minutes.
func FormatWalltime(hours float64) string {
	h := math.Floor(hours)
	m := math.Round(60 * (hours - h))
	if m == 60 {
		h++
		m = 0
	}
	return fmt.Sprintf("%02d:%02d:00", int(h), int(m))
}

// ParseWalltime parses either "HH:MM:SS" or a plain number of hours.
func ParseWalltime(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if hours, err := strconv.ParseFloat(s, 64); err == nil {
		if hours <= 0 {
			return 0, errs.Configf("walltime", "must be positive, got %q", s)
		}
		return time.Duration(hours * float64(time.Hour)), nil
	}
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, errs.Configf("walltime", "want HH:MM:SS or hours, got %q", s)
	}
	var n [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 || (i > 0 && (v > 59 || len(p) != 2)) {
			return 0, errs.Configf("walltime", "want HH:MM:SS or hours, got %q", s)
		}
		n[i] = v
	}
	d := time.Duration(n[0])*time.Hour + time.Duration(n[1])*time.Minute + time.Duration(n[2])*time.Second
	if d == 0 {
		return 0, errs.Configf("walltime", "must be positive, got %q", s)
	}
	return d, nil
}
