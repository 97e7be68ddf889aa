package store

// Column order is significant for the workbook layout.
var columns = []string{
	"AI_recommendation",
	"company",
	"title",
	"link",
	"years_required",
	"description",
	"posted_date",
}

// Row is one persisted evaluation outcome. Link is the unique key.
type Row struct {
	AIRecommendation string
	Company          string
	Title            string
	Link             string
	YearsRequired    string
	Description      string
	PostedDate       string
}

func (r *Row) values() []any {
	return []any{
		r.AIRecommendation,
		r.Company,
		r.Title,
		r.Link,
		r.YearsRequired,
		r.Description,
		r.PostedDate,
	}
}

// ResultSet is the ordered, link-deduplicated collection of evaluation rows.
type ResultSet struct {
	Rows []*Row
}

func (s *ResultSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Rows)
}

// Links returns the set of persisted listing links, used to seed dedup.
func (s *ResultSet) Links() map[string]struct{} {
	links := make(map[string]struct{}, len(s.Rows))
	for _, row := range s.Rows {
		if row.Link != "" {
			links[row.Link] = struct{}{}
		}
	}
	return links
}

// Append adds rows to the set, silently skipping any row whose link is
// already present. Returns the number of rows actually added.
func (s *ResultSet) Append(rows ...*Row) int {
	links := s.Links()

	added := 0
	for _, row := range rows {
		if _, ok := links[row.Link]; ok {
			continue
		}
		s.Rows = append(s.Rows, row)
		links[row.Link] = struct{}{}
		added++
	}

	return added
}
