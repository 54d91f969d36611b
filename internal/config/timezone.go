package config

import (
	"fmt"
	"os"
	"time"
)

// setTimezone configures the timezone fields of cfg based on cfg.TZ or the
// local system timezone.
//
// If cfg.TZ is non-empty, the corresponding time.Location is loaded, the
// current offset recorded, and the process TZ environment variable set so
// that child code observes the same zone. If cfg.TZ is empty, the system
// local timezone is used and cfg.TZ is populated with "UTC" or "UTC±H".
func setTimezone(cfg *Core) error {
	if cfg.TZ != "" {
		loc, err := time.LoadLocation(cfg.TZ)
		if err != nil {
			return fmt.Errorf("failed to load timezone: %w", err)
		}
		cfg.Location = loc
		_, cfg.TzOffsetInSec = time.Now().In(loc).Zone()

		if err := os.Setenv("TZ", cfg.TZ); err != nil {
			return fmt.Errorf("failed to set TZ environment variable: %w", err)
		}
		return nil
	}

	var tz string
	_, tzOffsetInSec := time.Now().Zone()

	if tzOffsetInSec != 0 {
		tz = fmt.Sprintf("UTC%+d", tzOffsetInSec/3600)
	} else {
		tz = "UTC"
	}

	cfg.Location = time.Local
	cfg.TZ = tz
	cfg.TzOffsetInSec = tzOffsetInSec

	return nil
}
