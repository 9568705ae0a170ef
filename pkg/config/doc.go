/*
Package config loads karatekonnect settings.

Values are layered: built-in defaults, then an optional YAML file, then
KARATEKONNECT_* environment variables. The result is validated before any
command runs.

Example file:

	api_base: https://api.github.com
	document_id: 0123456789abcdef
	cache_ttl: 5m
	backend: bolt
	default_stats:
	  - name: Strength
	    value: 50
*/
package config
