package steam

// Status classifies the outcome of a metadata lookup for one workshop id.
type Status int

const (
	// StatusOK means Detail is populated with current metadata.
	StatusOK Status = iota
	// StatusNotFound means the workshop item no longer exists upstream.
	// Permanent: the id is skipped, not retried.
	StatusNotFound
	// StatusTransient means the batch carrying this id kept failing after all
	// retry attempts. The id is skipped this run and retried next run.
	StatusTransient
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNotFound:
		return "not_found"
	case StatusTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// Detail holds the workshop metadata the watchdog cares about. TimeUpdated is
// the sole change signal; the rest feeds the mod list output.
type Detail struct {
	ID          string
	Title       string
	TimeCreated int64
	TimeUpdated int64
	Tags        []string
	Children    []string
}

type Result struct {
	Status Status
	Detail Detail
}

// FetchResult maps every requested workshop id to a result. A Fetcher always
// returns full coverage of its input, failures included.
type FetchResult map[string]Result
