package osm

// Changeset is a single changeset record as returned by the changesets API.
// Records are ephemeral: fetched fresh each cycle, only derived statistics survive.
type Changeset struct {
	ID        string            `json:"id"`
	User      string            `json:"user"`
	UID       string            `json:"uid"`
	CreatedAt string            `json:"created_at"`
	ClosedAt  string            `json:"closed_at,omitempty"`
	Tags      map[string]string `json:"tags"`
	Hashtags  string            `json:"hashtags"`
	Comment   string            `json:"comment"`
}

// xml wire shapes for /api/0.6/changesets
type changesetsDoc struct {
	Changesets []changesetElem `xml:"changeset"`
}

type changesetElem struct {
	ID        string    `xml:"id,attr"`
	User      string    `xml:"user,attr"`
	UID       string    `xml:"uid,attr"`
	CreatedAt string    `xml:"created_at,attr"`
	ClosedAt  string    `xml:"closed_at,attr"`
	Tags      []tagElem `xml:"tag"`
}

type tagElem struct {
	K string `xml:"k,attr"`
	V string `xml:"v,attr"`
}
