/*
Package remote talks to the single-file document store over HTTP.

Only two operations exist, and both move the whole document:

	GET   {base}/{kind}/{id}
	      → {"files": {"<filename>": {"content": "<Document JSON>"}}}

	PATCH {base}/{kind}/{id}
	      Authorization: token <credential>
	      {"files": {"<filename>": {"content": "<Document JSON>"}}}

The store offers no conditional writes. ReplaceDocument is a blind full
overwrite: whatever the store held is discarded.

# Errors

  - ErrRemoteUnavailable: transport failure, including cancelled contexts
  - *HTTPError: non-2xx answer, with the store's "message" on writes
  - ErrMalformedContent: the document file is missing or not a Document
  - ErrUnauthorized: 401/403 on a write; also matches *HTTPError

Fetches are idempotent and are retried with exponential backoff when
Config.Retries is set. Replaces are never retried.
*/
package remote
