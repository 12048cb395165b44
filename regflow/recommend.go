package regflow

// RecommendContext is the situational input to strategy recommendation.
type RecommendContext struct {
	NetworkSpeed     string `json:"network_speed"` // "slow" | "normal" | "fast"
	PreviousFailures int    `json:"previous_failures"`
	Hour             int    `json:"hour"` // local hour of day, 0–23
	VPNDetected      bool   `json:"vpn_detected"`
}

// Recommend picks a profile name for the given context. Rules apply in
// order:
//
//  1. more than 3 previous failures → aggressive
//  2. VPN detected or slow network → smart
//  3. business hours (9–17, assumed high server load) → smart
//  4. otherwise the profile with the best empirical success rate; ties go
//     to declaration order, and with no history at all the first declared
//     profile (standard) wins.
func (o *Orchestrator) Recommend(rc RecommendContext) string {
	if rc.PreviousFailures > 3 {
		return ProfileAggressive
	}
	if rc.VPNDetected || rc.NetworkSpeed == "slow" {
		return ProfileSmart
	}
	if rc.Hour >= 9 && rc.Hour <= 17 {
		return ProfileSmart
	}

	best := o.profiles[0].Name
	bestRate := -1.0
	for _, p := range o.profiles {
		c := o.stats.Get(p.Name)
		if c.Attempts == 0 {
			continue
		}
		if rate := c.SuccessRate(); rate > bestRate {
			best, bestRate = p.Name, rate
		}
	}
	return best
}
