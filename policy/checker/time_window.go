// api/policy/checker/time_window.go

package checker

import (
	"context"

	"github.com/warden-labs/warden/api/model"
)

// TimeWindowChecker restricts actions to UTC hours and weekdays derived from
// the verification timestamp, not the wall clock, keeping evaluation
// deterministic and testable.
type TimeWindowChecker struct{}

func NewTimeWindowChecker() *TimeWindowChecker {
	return &TimeWindowChecker{}
}

func (c *TimeWindowChecker) Check(ctx context.Context, rule model.Rule, req *Request) model.CheckResult {
	cfg, ok := rule.Config.(*model.TimeWindowConfig)
	if !ok {
		return wrongConfig(rule.Type, rule.Config)
	}

	at := req.Context.Time()
	weekday := int(at.Weekday())
	hour := at.Hour()

	// Day check precedes hour check.
	if len(cfg.AllowedDays) > 0 {
		allowed := false
		for _, d := range cfg.AllowedDays {
			if d == weekday {
				allowed = true
				break
			}
		}
		if !allowed {
			return model.Fail(rule.Type, "weekday %d is not an allowed day", weekday).
				WithData(map[string]interface{}{"weekday": weekday, "allowedDays": cfg.AllowedDays})
		}
	}

	if cfg.StartHour < cfg.EndHour {
		// Ascending window, e.g. 9-17: deny before start or at/after end.
		if hour < cfg.StartHour || hour >= cfg.EndHour {
			return denyHour(rule.Type, hour, cfg)
		}
	} else {
		// Wraparound window, e.g. 22-6 spans midnight: only the gap between
		// end and start is denied.
		if hour < cfg.StartHour && hour >= cfg.EndHour {
			return denyHour(rule.Type, hour, cfg)
		}
	}

	return model.Pass(rule.Type)
}

func denyHour(t model.RuleType, hour int, cfg *model.TimeWindowConfig) model.CheckResult {
	return model.Fail(t, "hour %d UTC is outside window %d-%d", hour, cfg.StartHour, cfg.EndHour).
		WithData(map[string]interface{}{"hour": hour, "startHour": cfg.StartHour, "endHour": cfg.EndHour})
}
