/*
Package types defines the roster data model shared by every other package.

The remote store holds exactly one JSON document. Its shape is the contract
between every client instance and the store:

	{
	  "athletes": [
	    { "id": "a1", "Strength": 50, "Speed": 72, ... },
	    ...
	  ],
	  "lastUpdated": "2024-01-01T00:00:00.000Z"
	}

# Core Types

  - Document: the whole roster, read and written as one unit
  - Athlete: one record, a unique string id plus open-ended attributes
  - CacheEntry: a locally timestamped snapshot of a Document

Athlete ids are unique within a Document. The store never checks this, so
Document.Validate is run by writers before anything is sent.

Documents are values reconstructed on every read. Use Document.Clone before
mutating a document that another component may still hold.
*/
package types
