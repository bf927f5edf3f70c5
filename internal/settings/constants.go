package settings

// Settings keys and defaults.
const (
	// AdBlockKey is the settings key of the ad-block policy singleton.
	AdBlockKey = "adblock"
	// DefaultAdBlockEnabled is used until an admin stores a policy.
	DefaultAdBlockEnabled = true
	// DefaultAdBlockMessage is shown to detected ad-block users until an admin stores a policy.
	DefaultAdBlockMessage = "We noticed you're using an ad blocker. Our tools are free thanks to ads. Please consider disabling it for this site."
)
