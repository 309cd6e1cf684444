package model

import "time"

// StatusTransportError is recorded as the last status when a request got no HTTP response.
const StatusTransportError = -1

// Entry is one tracked document in the catalog.
// Entries are values: the catalog hands out copies, so changing a field on a
// returned Entry never changes the catalog. Use Catalog.Update for that.
type Entry struct {
	ID           int       // Assigned once by the catalog, never reused
	URL          string    // Canonical remote address, unique across the catalog
	SourceSlug   string    // Provenance tag, e.g. "primary:foo/bar"
	OriginalSlug string    // Provenance tag this entry supersedes (corrections only)
	Skip         string    // Non-empty marks the entry as excluded from fetching
	Comments     string    // Free-text provenance note
	LastStatus   int       // Last fetch outcome; 0 until the first attempt
	LastChecked  time.Time // Last sync pass that touched this entry; zero until then
}

// Skipped returns true if the entry is excluded from fetching.
func (e Entry) Skipped() bool {
	return e.Skip != ""
}

// Checked returns true if a sync pass has touched this entry.
func (e Entry) Checked() bool {
	return !e.LastChecked.IsZero()
}

// NewEntry holds the caller-supplied fields of an entry being added.
// ID is reserved: the catalog assigns it and rejects a non-zero value.
type NewEntry struct {
	ID           int
	URL          string
	SourceSlug   string
	OriginalSlug string
	Skip         string
	Comments     string
}

// EntryUpdate is a partial update. Nil fields are left untouched.
// ID and URL cannot be changed after creation.
type EntryUpdate struct {
	SourceSlug   *string
	OriginalSlug *string
	Skip         *string
	Comments     *string
	LastStatus   *int
	LastChecked  *time.Time
}

// Apply returns a copy of e with the non-nil fields of u replaced.
func (u EntryUpdate) Apply(e Entry) Entry {
	if u.SourceSlug != nil {
		e.SourceSlug = *u.SourceSlug
	}
	if u.OriginalSlug != nil {
		e.OriginalSlug = *u.OriginalSlug
	}
	if u.Skip != nil {
		e.Skip = *u.Skip
	}
	if u.Comments != nil {
		e.Comments = *u.Comments
	}
	if u.LastStatus != nil {
		e.LastStatus = *u.LastStatus
	}
	if u.LastChecked != nil {
		e.LastChecked = *u.LastChecked
	}
	return e
}

// StatusUpdate builds the update the sync engine writes after an attempt.
func StatusUpdate(status int, checkedAt time.Time) EntryUpdate {
	return EntryUpdate{LastStatus: &status, LastChecked: &checkedAt}
}

// FetchMetadata records the most recent fetch attempt for an entry.
// It lives next to the archived content, independent of the catalog snapshot.
type FetchMetadata struct {
	LastAttempt   time.Time `yaml:"last_attempt"`
	LastStatus    int       `yaml:"last_status"`
	ETag          string    `yaml:"etag,omitempty"`
	LastModified  string    `yaml:"last_modified,omitempty"`
	ContentLength int64     `yaml:"content_length,omitempty"`
	Digest        string    `yaml:"sha256,omitempty"` // SHA-256 of content.html, hex
}

// Correction is one row of a slug corrections file.
type Correction struct {
	OriginalSlug  string
	CorrectedSlug string
}

// SourceRow is one row of the relational extract used for exports.
// Values are keyed by column name; NULL columns map to "".
type SourceRow struct {
	Slug   string
	Values map[string]string
}
