package pluginsapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Args are the request arguments sent with every directory action.
type Args struct {
	Slug      string          `json:"slug,omitempty"`
	Search    string          `json:"search,omitempty"`
	Tag       string          `json:"tag,omitempty"`
	Author    string          `json:"author,omitempty"`
	Browse    string          `json:"browse,omitempty"`
	User      string          `json:"user,omitempty"`
	Page      int             `json:"page,omitempty"`
	PerPage   int             `json:"per_page,omitempty"`
	Number    int             `json:"number,omitempty"`
	Locale    string          `json:"locale,omitempty"`
	IsSSL     bool            `json:"is_ssl,omitempty"`
	Fields    map[string]bool `json:"fields,omitempty"`
	Installed []string        `json:"installed_plugins,omitempty"`
}

// Plugin is the directory's description of one plugin.
type Plugin struct {
	Name             string      `json:"name"`
	Slug             string      `json:"slug"`
	Version          string      `json:"version"`
	Author           string      `json:"author,omitempty"`
	AuthorProfile    string      `json:"author_profile,omitempty"`
	Contributors     Map[string] `json:"contributors,omitempty"`
	Requires         string      `json:"requires,omitempty"`
	Tested           string      `json:"tested,omitempty"`
	Rating           float64     `json:"rating,omitempty"` // percent
	Ratings          Map[int]    `json:"ratings,omitempty"` // stars -> count
	NumRatings       int         `json:"num_ratings,omitempty"`
	Downloaded       int         `json:"downloaded,omitempty"`
	LastUpdated      string      `json:"last_updated,omitempty"`
	Homepage         string      `json:"homepage,omitempty"`
	ShortDescription string      `json:"short_description,omitempty"`
	Sections         Sections    `json:"sections,omitempty"`
	DownloadLink     string      `json:"download_link,omitempty"`
	DonateLink       string      `json:"donate_link,omitempty"`
	Banners          Banners     `json:"banners,omitempty"`

	// External is set when a hook answered instead of the directory.
	External bool `json:"external,omitempty"`
}

// RatingTotal sums the per-star counts.
func (p *Plugin) RatingTotal() int {
	total := 0
	for _, n := range p.Ratings {
		total += n
	}
	return total
}

// QueryInfo is the paging block of a query_plugins response.
type QueryInfo struct {
	Page    int `json:"page"`
	Pages   int `json:"pages"`
	Results int `json:"results"`
}

// QueryResult is a page of query_plugins results.
type QueryResult struct {
	Info    QueryInfo `json:"info"`
	Plugins []Plugin  `json:"plugins"`
}

// Tag is one popular tag from hot_tags.
type Tag struct {
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Count int    `json:"count"`
}

// Tags decodes the hot_tags object (slug -> tag) into a slice sorted by name.
type Tags []Tag

// UnmarshalJSON implements json.Unmarshaler.
func (t *Tags) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var list []Tag
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*t = list
		return nil
	}
	var m map[string]Tag
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	out := make(Tags, 0, len(m))
	for slug, tag := range m {
		if tag.Slug == "" {
			tag.Slug = slug
		}
		out = append(out, tag)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	*t = out
	return nil
}

// Map is a JSON object that the directory encodes as [] when empty.
type Map[V any] map[string]V

// UnmarshalJSON implements json.Unmarshaler.
func (m *Map[V]) UnmarshalJSON(data []byte) error {
	if isEmptyList(data) {
		*m = nil
		return nil
	}
	var out map[string]V
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	*m = out
	return nil
}

// Section is one named block of plugin documentation, in directory order.
type Section struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// Sections keeps the order in which the directory sent the sections.
type Sections []Section

// Get returns the content of the named section.
func (s Sections) Get(name string) (string, bool) {
	for _, sec := range s {
		if sec.Name == name {
			return sec.Content, true
		}
	}
	return "", false
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Sections) UnmarshalJSON(data []byte) error {
	if isEmptyList(data) {
		*s = nil
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("sections: want object, got %v", tok)
	}
	var out Sections
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		var content string
		if err := dec.Decode(&content); err != nil {
			return fmt.Errorf("section %v: %w", keyTok, err)
		}
		out = append(out, Section{Name: keyTok.(string), Content: content})
	}
	*s = out
	return nil
}

// MarshalJSON writes the sections back as an ordered object.
func (s Sections) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, sec := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, _ := json.Marshal(sec.Name)
		v, _ := json.Marshal(sec.Content)
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Banners are the header images shown on the plugin-information screen.
type Banners struct {
	Low  string `json:"low,omitempty"`
	High string `json:"high,omitempty"`
}

// UnmarshalJSON accepts [] for "no banners" and false for a missing size.
func (b *Banners) UnmarshalJSON(data []byte) error {
	*b = Banners{}
	if isEmptyList(data) {
		return nil
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if s, ok := raw["low"].(string); ok {
		b.Low = s
	}
	if s, ok := raw["high"].(string); ok {
		b.High = s
	}
	return nil
}

// Empty reports whether no banner image is available.
func (b Banners) Empty() bool { return b.Low == "" && b.High == "" }

func isEmptyList(data []byte) bool {
	data = bytes.TrimSpace(data)
	return bytes.Equal(data, []byte("[]")) || bytes.Equal(data, []byte("null"))
}
