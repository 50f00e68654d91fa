package analysis

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// ErrBadUserID means the input was neither a numeric user id nor an
// app.toplogger.nu URL carrying a uid parameter.
var ErrBadUserID = errors.New("analysis: input is not a user id or a profile share link")

var userIDPattern = regexp.MustCompile(`^https://app\.toplogger\.nu/.*uid=(\d+).*$|^(\d+)$`)

// ParseUserID extracts a user id from raw user input, which may be the
// bare id or a share link copied from the TopLogger app.
func ParseUserID(input string) (int64, error) {
	m := userIDPattern.FindStringSubmatch(input)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrBadUserID, input)
	}
	digits := m[1]
	if digits == "" {
		digits = m[2]
	}
	id, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadUserID, input)
	}
	return id, nil
}
