package regflow

import (
	"context"
	"time"
)

// Environment is what the smart profile's detection step learns about the
// machine it runs on.
type Environment struct {
	NetworkClass string `json:"network_class"` // "2g" | "3g" | "4g"
	Timezone     string `json:"timezone"`
	ScreenW      int    `json:"screen_w"`
	ScreenH      int    `json:"screen_h"`
}

// Prober detects the current environment. A browser-backed prober can read
// the real connection type and screen; the default is static.
type Prober interface {
	Probe(ctx context.Context) (Environment, error)
}

// StaticProber returns a fixed environment. The zero value reports a 4G
// desktop, which leaves the profile's own delay range in effect.
type StaticProber struct {
	Env Environment
}

func (p StaticProber) Probe(context.Context) (Environment, error) {
	env := p.Env
	if env.NetworkClass == "" {
		env.NetworkClass = "4g"
	}
	if env.ScreenW == 0 {
		env.ScreenW, env.ScreenH = 1920, 1080
	}
	return env, nil
}

// adaptDelayRange scales the inter-step delay range to the detected network
// class, then applies the nighttime discount: between 22:00 and 06:00 the
// assumed server load is low and delays shrink to 70%.
func adaptDelayRange(env Environment, now time.Time) (min, max time.Duration) {
	switch env.NetworkClass {
	case "2g":
		min, max = 5000*time.Millisecond, 10000*time.Millisecond
	case "3g":
		min, max = 3000*time.Millisecond, 6000*time.Millisecond
	default: // 4g and anything faster
		min, max = 1000*time.Millisecond, 3000*time.Millisecond
	}
	if h := now.Hour(); h >= 22 || h < 6 {
		min = min * 7 / 10
		max = max * 7 / 10
	}
	return min, max
}
