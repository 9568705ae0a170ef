/*
Package metrics provides Prometheus metrics and component health for the
karatekonnect client.

All collectors are registered with the default Prometheus registry at package
init, so importing the package is enough to make them visible on /metrics.

# Metrics

Cache:

	karatekonnect_cache_reads_total{result}          hit, miss, expired, corrupt
	karatekonnect_cache_write_failures_total         writes the store refused
	karatekonnect_stale_fallbacks_total              reads served from an expired copy

Remote store:

	karatekonnect_remote_requests_total{operation,status}
	karatekonnect_remote_request_duration_seconds{operation}

operation is one of fetch, fetch_raw and replace. status is the HTTP status
code, or "error" when no response arrived.

Roster:

	karatekonnect_updates_total{result}              success, error, auth_required, invalid

# Health

Components report their state with UpdateComponent. The store is critical:
when it is unhealthy the client is unhealthy and /ready returns 503. A failing
remote or cache only degrades the client, because cached reads keep working.

# Usage

Timing a request:

	timer := metrics.NewTimer()
	resp, err := httpClient.Do(req)
	timer.ObserveDurationVec(metrics.RemoteRequestDuration, "fetch")

Serving everything while a long-running command is active:

	srv := &http.Server{Addr: ":9090", Handler: metrics.NewServeMux()}
	go srv.ListenAndServe()

NewServeMux mounts /metrics, /health, /ready and /live.
*/
package metrics
