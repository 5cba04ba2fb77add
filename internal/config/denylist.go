package config

// DefaultDenyHosts returns hosts the link crawler never follows. Links to
// them are not counted either. Subdomains of a listed host are denied too.
func DefaultDenyHosts() []string {
	return []string{
		// Login & identity
		"accounts.google.com",
		"login.microsoftonline.com",
		"login.live.com",
		"auth0.com",
		"okta.com",
		"id.me",

		// Banking & payments
		"paypal.com",
		"chase.com",
		"bankofamerica.com",
		"wellsfargo.com",

		// Exchange account pages
		"coinbase.com",
		"kraken.com",
		"binance.com",

		// Share buttons and trackers on wiki pages
		"facebook.com",
		"twitter.com",
		"reddit.com",
		"digg.com",
		"stumbleupon.com",
		"google-analytics.com",
		"doubleclick.net",
	}
}
