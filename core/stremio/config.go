package stremio

// Config holds configuration for the remote account service client.
type Config struct {
	// APIURL is the base URL of the remote account service.
	APIURL string `mapstructure:"api_url" default:"https://api.strem.io"`
	// TimeoutSeconds bounds every outbound call.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"15"`
	// RequestsPerSecond paces outbound calls. Zero disables pacing.
	RequestsPerSecond float64 `mapstructure:"requests_per_second" default:"10"`
}
