// AngelaMos | 2026
// tier.go

package admission

import (
	"time"

	"github.com/acquisitions/api/internal/config"
	"github.com/acquisitions/api/internal/core"
)

// Tier is a rate limit bound to a caller role.
type Tier struct {
	Name    string
	Limit   int
	Window  time.Duration
	Message string
}

type Tiers map[string]Tier

var DefaultTiers = Tiers{
	core.RoleAdmin: {
		Name:    core.RoleAdmin,
		Limit:   20,
		Window:  time.Minute,
		Message: "Admin request limit exceeded (20 per minute). Slow down please.",
	},
	core.RoleUser: {
		Name:    core.RoleUser,
		Limit:   10,
		Window:  time.Minute,
		Message: "User request limit exceeded (10 per minute). Slow down please.",
	},
	core.RoleGuest: {
		Name:    core.RoleGuest,
		Limit:   5,
		Window:  time.Minute,
		Message: "Guest request limit exceeded (5 per minute). Slow down please.",
	},
}

// TiersFromConfig overlays configured tiers on DefaultTiers.
func TiersFromConfig(cfg map[string]config.TierConfig) Tiers {
	tiers := make(Tiers, len(DefaultTiers))
	for role, tier := range DefaultTiers {
		tiers[role] = tier
	}

	for role, tc := range cfg {
		tier := tiers[role]
		tier.Name = role
		if tc.Limit > 0 {
			tier.Limit = tc.Limit
		}
		if tc.Window > 0 {
			tier.Window = tc.Window
		}
		if tc.Message != "" {
			tier.Message = tc.Message
		}
		tiers[role] = tier
	}

	return tiers
}

// For returns the tier for role. Unknown and empty roles get the guest tier.
func (t Tiers) For(role string) Tier {
	if tier, ok := t[role]; ok {
		return tier
	}
	return t[core.RoleGuest]
}
