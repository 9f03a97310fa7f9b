package cron

import (
	"testing"

	"github.com/robfig/cron/v3"
)

// FuzzRetentionSchedule throws arbitrary strings at the 5-field parser
// the scheduler uses for the audit retention schedule. Operators type
// these expressions into config by hand; parse errors are fine, panics
// are not.
func FuzzRetentionSchedule(f *testing.F) {
	f.Add("0 3 * * *")
	f.Add("*/15 * * * *")
	f.Add("0 0 1 1 *")
	f.Add("* * * * *")
	f.Add("every day at three")
	f.Add("")
	f.Add("60 * * * *")
	f.Add("0 25 * * *")
	f.Add("0 3 * *")

	f.Fuzz(func(_ *testing.T, expr string) {
		parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
		_, _ = parser.Parse(expr)
	})
}
