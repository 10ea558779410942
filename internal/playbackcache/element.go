package playbackcache

// Element is one prepared playback entry: everything the rendering
// layer needs to show a media item without refetching its metadata.
type Element struct {
	Name     string            `json:"name"`
	URL      string            `json:"url"`
	MIMEType string            `json:"mime_type,omitempty"`
	Poster   string            `json:"poster,omitempty"`
	Size     int64             `json:"size,omitempty"`
	Attrs    map[string]string `json:"attrs,omitempty"`
}

// Clone returns a deep copy of e. Cached entries are cloned on both
// put and get so callers can never mutate the cache's copy.
func (e *Element) Clone() *Element {
	if e == nil {
		return nil
	}

	out := *e
	if e.Attrs != nil {
		out.Attrs = make(map[string]string, len(e.Attrs))
		for k, v := range e.Attrs {
			out.Attrs[k] = v
		}
	}
	return &out
}
