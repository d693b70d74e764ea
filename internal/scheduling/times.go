/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduling

import (
	"fmt"
	"strconv"
	"strings"
)

// minutesPerDay is the boundary past which a block carries an
// end-of-day warning. Times are not wrapped; "24:25" is rendered as-is
// so a best-effort schedule stays readable.
const minutesPerDay = 24 * 60

// MinutesOfDay parses a wall-clock "HH:MM" string into minutes since
// midnight.
func MinutesOfDay(hhmm string) (int, error) {
	parts := strings.SplitN(hhmm, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("malformed time %q", hhmm)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("malformed time %q", hhmm)
	}
	mins, err := strconv.Atoi(parts[1])
	if err != nil || mins < 0 || mins > 59 || hours < 0 {
		return 0, fmt.Errorf("malformed time %q", hhmm)
	}
	return hours*60 + mins, nil
}

// FormatMinutes renders minutes since midnight as "HH:MM".
func FormatMinutes(m int) string {
	if m < 0 {
		m = 0
	}
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// AddMinutes shifts an "HH:MM" time forward by delta minutes.
func AddMinutes(hhmm string, delta int) (string, error) {
	m, err := MinutesOfDay(hhmm)
	if err != nil {
		return "", err
	}
	return FormatMinutes(m + delta), nil
}
