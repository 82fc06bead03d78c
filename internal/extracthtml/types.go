package extracthtml

// Payload is the JSON object embedded in the page's marker attribute.
// Only Body is consumed; everything else in the blob is ignored.
type Payload struct {
	Body string `json:"body"`
}

// TableSection is one heading + table pairing found in Payload.Body.
type TableSection struct {
	Header string // trimmed heading text
	Markup string // outer HTML of the table, header row included
}

// ParsedTable is the column/row view of one TableSection.
//
// Every row has exactly len(Columns) values; cells missing from the markup
// are "".
type ParsedTable struct {
	Columns []string
	Rows    [][]string
}

// ExtractOptions locates the embedded payload inside the page.
type ExtractOptions struct {
	// ContainerSelector matches the element carrying the payload attribute.
	ContainerSelector string `yaml:"container_selector" json:"container_selector"`

	// PropsAttr is the attribute holding the entity-escaped JSON.
	PropsAttr string `yaml:"props_attr" json:"props_attr"`

	// HeadingSelector matches the headings that name each table.
	HeadingSelector string `yaml:"heading_selector" json:"heading_selector"`
}

// DefaultExtractOptions returns the marker used by the on-sale dates page.
func DefaultExtractOptions() ExtractOptions {
	return ExtractOptions{
		ContainerSelector: `[data-component="RichText"]`,
		PropsAttr:         "data-props",
		HeadingSelector:   "h2",
	}
}

func (o ExtractOptions) withDefaults() ExtractOptions {
	d := DefaultExtractOptions()
	if o.ContainerSelector == "" {
		o.ContainerSelector = d.ContainerSelector
	}
	if o.PropsAttr == "" {
		o.PropsAttr = d.PropsAttr
	}
	if o.HeadingSelector == "" {
		o.HeadingSelector = d.HeadingSelector
	}
	return o
}
