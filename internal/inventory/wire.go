package inventory

// Wire types mirror the subset of the NetBox v4 REST API shape this
// client depends on. Only the fields this package actually reads or
// writes are declared.

// listResponse is the generic paginated envelope every NetBox list
// endpoint returns; Next is an absolute URL to the following page, or
// empty on the last page.
type listResponse[T any] struct {
	Count    int    `json:"count"`
	Next     string `json:"next,omitempty"`
	Previous string `json:"previous,omitempty"`
	Results  []T    `json:"results"`
}

type nbBrief struct {
	ID   int    `json:"id"`
	Name string `json:"name,omitempty"`
	Slug string `json:"slug,omitempty"`
	URL  string `json:"url,omitempty"`
}

type nbDevice struct {
	ID        int      `json:"id"`
	Name      string   `json:"name"`
	Site      *nbBrief `json:"site,omitempty"`
	Rack      *nbBrief `json:"rack,omitempty"`
	OOBIP     *nbBrief `json:"oob_ip,omitempty"`
	PrimaryIP *struct {
		Address string `json:"address"`
	} `json:"primary_ip4,omitempty"`
}

type nbIPAddress struct {
	ID                 int      `json:"id"`
	Address            string   `json:"address"`
	AssignedObjectType string   `json:"assigned_object_type,omitempty"`
	AssignedObjectID   int      `json:"assigned_object_id,omitempty"`
	AssignedObject     *nbBrief `json:"assigned_object,omitempty"`
}

type nbLinkPeer struct {
	ID     int      `json:"id"`
	Name   string   `json:"name"`
	Device *nbBrief `json:"device,omitempty"`
}

type nbInterface struct {
	ID           int            `json:"id"`
	Name         string         `json:"name"`
	Device       *nbBrief       `json:"device,omitempty"`
	MACAddress   string         `json:"mac_address,omitempty"`
	Cable        *nbBrief       `json:"cable,omitempty"`
	MgmtOnly     bool           `json:"mgmt_only,omitempty"`
	LinkPeers    []nbLinkPeer   `json:"link_peers,omitempty"`
	CustomFields map[string]any `json:"custom_fields,omitempty"`
}

type nbTermination struct {
	ObjectType string `json:"object_type"`
	ObjectID   int    `json:"object_id"`
}

type nbCableCreateRequest struct {
	ATerminations []nbTermination `json:"a_terminations"`
	BTerminations []nbTermination `json:"b_terminations"`
	Status        string          `json:"status"`
	Description   string          `json:"description,omitempty"`
	Label         string          `json:"label,omitempty"`
}

type nbCable struct {
	ID          int    `json:"id"`
	Status      *nbBrief `json:"status,omitempty"`
	Description string `json:"description,omitempty"`
	Label       string `json:"label,omitempty"`
}
