package confluence

// Page is a Confluence content item with its storage-format body expanded.
type Page struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Status string `json:"status"`
	Title  string `json:"title"`
	Space  *Space `json:"space,omitempty"`
	Body   *Body  `json:"body,omitempty"`
	Links  Links  `json:"_links"`
}

// Space identifies the space a page belongs to.
type Space struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// Body holds the storage-format representation (XHTML).
type Body struct {
	Storage struct {
		Value          string `json:"value"`
		Representation string `json:"representation"`
	} `json:"storage"`
}

// Links carries the web UI link for a page.
type Links struct {
	WebUI string `json:"webui"`
	Base  string `json:"base"`
}

// contentResponse is one page of a paginated content listing.
type contentResponse struct {
	Results []Page `json:"results"`
	Start   int    `json:"start"`
	Limit   int    `json:"limit"`
	Size    int    `json:"size"`
}

// errorResponse is the Confluence error envelope.
type errorResponse struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}
