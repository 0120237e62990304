// Wiretap is a background traffic recorder for API requests.
//
// It runs a forward proxy that observes every request passing through it,
// correlating lifecycle events into one record per request, and a control
// API to toggle recording, read the log and install a header override.
//
// Usage:
//
//	# Start the recorder with default configuration
//	wiretap run
//
//	# Start with a configuration file and a .env file
//	wiretap run --config wiretap.yaml --env-file .env
//
//	# Turn recording on and list recorded requests
//	wiretap recording on
//	wiretap logs
//
//	# Inject a header into requests under a URL prefix
//	wiretap override set https://api.example.com -H "Authorization: Bearer dev"
//
//	# Show version information
//	wiretap version
package main

func main() {
	Execute()
}
