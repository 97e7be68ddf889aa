package jobsource

// Listing is a single job posting returned by the provider. URL is the
// unique identifier; a listing without one is dropped at the provider
// boundary. All other fields default to empty strings.
type Listing struct {
	Company     string `json:"company,omitempty"`
	Title       string `json:"title,omitempty"`
	URL         string `json:"job_url,omitempty"`
	Description string `json:"description,omitempty"`
	PostedDate  string `json:"date_posted,omitempty"`
}

type Listings struct {
	Items []*Listing
}

func (l *Listings) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Items)
}
