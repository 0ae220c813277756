package observerproto

// Version is the observer protocol version.
const Version = "0.1"

// Message types.
const (
	TypeSubscribe = "SUBSCRIBE"
	TypeView      = "VIEW"
	TypeConfig    = "CONFIG"
	TypeAck       = "ACK"
	TypeError     = "ERROR"
)

// Client -> Server. First message on the observer WS connection.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	// SkipHidden drops hidden widgets from VIEW messages.
	SkipHidden bool `json:"skip_hidden,omitempty"`
}

// HTTP response for GET /v1/observer/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string         `json:"protocol_version"`
	SessionID       string         `json:"session_id,omitempty"`
	CityName        string         `json:"city_name"`
	CatalogDigest   string         `json:"catalog_digest"`
	Language        string         `json:"language"`
	Categories      []CategoryInfo `json:"categories"`
	Panel           PanelParams    `json:"panel"`
}

type CategoryInfo struct {
	ID        string `json:"id"`
	Group     string `json:"group"`
	Unit      string `json:"unit"`
	Label     string `json:"label"`
	Enabled   bool   `json:"enabled"`
	Threshold int    `json:"threshold"`
}

type PanelParams struct {
	Columns            int  `json:"columns"`
	ItemWidth          int  `json:"item_width"`
	ItemHeight         int  `json:"item_height"`
	ItemPadding        int  `json:"item_padding"`
	UpdateEverySeconds int  `json:"update_every_seconds"`
	AutoHide           bool `json:"auto_hide"`
}

// Server -> Client. Sent whenever the panel presentation changes.
type ViewMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Seq             uint64 `json:"seq"`

	Shown      bool    `json:"shown"`
	Opacity    float64 `json:"opacity"`
	Position   [2]int  `json:"position"`
	Size       [2]int  `json:"size"`
	Background string  `json:"background"`
	Title      string  `json:"title"`

	Widgets []WidgetState `json:"widgets"`
}

type WidgetState struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Visible bool   `json:"visible"`
	Text    string `json:"text,omitempty"`
	// Value is absent when the metric is unavailable.
	Value      *int   `json:"value,omitempty"`
	Cell       [2]int `json:"cell"`
	Pos        [2]int `json:"pos"`
	Color      string `json:"color,omitempty"`
	HoverColor string `json:"hover_color,omitempty"`
}

// Client -> Server. Edits the live configuration. Only set fields change.
type ConfigMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`

	Category  string  `json:"category,omitempty"`
	Enabled   *bool   `json:"enabled,omitempty"`
	Threshold *int    `json:"threshold,omitempty"`
	Columns   *int    `json:"columns,omitempty"`
	Position  *[2]int `json:"position,omitempty"`
	Language  string  `json:"language,omitempty"`
}

// Server -> Client. Reply to a CONFIG message.
type ReplyMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Message         string `json:"message,omitempty"`
}
