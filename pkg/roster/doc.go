/*
Package roster is the single entry point for reading and writing the athlete
roster.

Storage combines three collaborators that all live on one local key/value
store: the cache of the last known document, the write token, and a client for
the remote document. Construct one per process with New and pass it to
whatever needs roster data.

# Reads

FetchData follows a fixed order:

 1. A cache entry at most TTL old is returned without any network traffic.
 2. Otherwise the remote document is fetched and cached.
 3. If the fetch fails, the newest cached copy is returned whatever its age.
 4. With nothing cached, the error is ErrDataUnavailable wrapping the cause.

Expired entries served in step 3 keep their original timestamp, so the next
call tries the remote again.

# Writes

UpdateData replaces the whole remote document. It refuses to send anything
without a token (ErrAuthRequired) or with missing or duplicate athlete ids
(ErrInvalidDocument). A rejected or failed replace returns ErrUpdateFailed and
leaves the cache as it was.

UpdateAthlete is read, merge, write. There is no version check: when two
processes update concurrently, the last replace wins and the other change is
lost.
*/
package roster
