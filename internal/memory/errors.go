package memory

import "errors"

// ErrStoreUnavailable wraps profile-store read/write failures. A learning
// step that hits it aborts without partial persistence; the caller degrades
// to a default profile instead of failing the turn.
var ErrStoreUnavailable = errors.New("preference store unavailable")

// ErrQueryTooLong is reported when a query exceeds the extractor's limit.
// Non-fatal: the turn continues with an empty candidate set.
var ErrQueryTooLong = errors.New("query exceeds maximum length")
