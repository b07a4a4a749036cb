// Package crossref provides a client for the Crossref REST API.
//
// Crossref indexes scholarly metadata registered by publishers. This package
// implements the papersources.PaperSource interface for searching works and
// resolving DOIs. Crossref asks API consumers to identify themselves with a
// User-Agent carrying a contact address ("polite pool").
//
// API documentation: https://api.crossref.org/swagger-ui/index.html
package crossref

// WorksResponse represents the response from the /works search endpoint.
type WorksResponse struct {
	// Status is "ok" on success.
	Status string `json:"status"`

	// Message contains the result payload.
	Message WorksMessage `json:"message"`
}

// WorksMessage is the payload of a works search response.
type WorksMessage struct {
	// TotalResults is the total number of works matching the query.
	TotalResults int `json:"total-results"`

	// Items contains the matching works.
	Items []Work `json:"items"`
}

// WorkResponse represents the response from the /works/{doi} endpoint.
type WorkResponse struct {
	Status  string `json:"status"`
	Message Work   `json:"message"`
}

// Work represents a single work record in the Crossref API.
type Work struct {
	// DOI is the Digital Object Identifier of the work.
	DOI string `json:"DOI"`

	// Title holds the work's title(s); the first entry is the primary title.
	Title []string `json:"title"`

	// Author is the list of contributors.
	Author []Author `json:"author"`

	// Abstract is the abstract text, often wrapped in JATS XML markup.
	Abstract string `json:"abstract"`

	// URL is the persistent link (https://doi.org/...).
	URL string `json:"URL"`

	// ContainerTitle holds the journal or proceedings title(s).
	ContainerTitle []string `json:"container-title"`

	// Published is the earliest known publication date.
	Published *DateParts `json:"published"`

	// PublishedPrint is the print publication date.
	PublishedPrint *DateParts `json:"published-print"`

	// PublishedOnline is the online publication date.
	PublishedOnline *DateParts `json:"published-online"`

	// IsReferencedByCount is the number of citations Crossref has registered.
	IsReferencedByCount int `json:"is-referenced-by-count"`
}

// Author represents a contributor in the Crossref API.
type Author struct {
	Given  string `json:"given"`
	Family string `json:"family"`
	Name   string `json:"name"` // organizations carry a single name field
}

// DateParts is Crossref's date representation: nested arrays of
// [year, month, day] where month and day may be absent.
type DateParts struct {
	DateParts [][]int `json:"date-parts"`
}
