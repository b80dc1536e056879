package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// EncodeRequest is one request to hide text in a video.
type EncodeRequest struct {
	Video  []byte
	Text   string
	Source string
}

// DecodeRequest is one request to recover text from a video.
type DecodeRequest struct {
	Video  []byte
	Source string
}

// EncodeResponse summarizes an encode; the video itself travels separately.
type EncodeResponse struct {
	Frames        int   `json:"frames"`
	Chunks        int   `json:"chunks"`
	Indices       []int `json:"indices"`
	Dropped       int   `json:"dropped"`
	MetadataFrame int   `json:"metadataFrame"`
	OutputBytes   int   `json:"outputBytes"`
}

// DecodeResponse describes a decode outcome.
type DecodeResponse struct {
	Found         bool   `json:"found"`
	Message       string `json:"message"`
	Decrypted     bool   `json:"decrypted"`
	Strategy      string `json:"strategy"`
	MetadataFrame int    `json:"metadataFrame"`
	Frames        int    `json:"frames"`
	Recovered     int    `json:"recovered"`
}

// HistoryEntry describes one journal entry in a transport-friendly format.
type HistoryEntry struct {
	ID           string `json:"id"`
	Kind         string `json:"kind"`
	Status       string `json:"status"`
	Source       string `json:"source,omitempty"`
	RequestID    string `json:"requestId,omitempty"`
	Frames       int    `json:"frames"`
	Chunks       int    `json:"chunks"`
	Dropped      int    `json:"dropped"`
	Strategy     string `json:"strategy,omitempty"`
	Found        bool   `json:"found"`
	Decrypted    bool   `json:"decrypted"`
	BytesIn      int64  `json:"bytesIn"`
	BytesOut     int64  `json:"bytesOut"`
	ErrorKind    string `json:"errorKind,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	StartedAt    string `json:"startedAt"`
	FinishedAt   string `json:"finishedAt,omitempty"`
	DurationMS   int64  `json:"durationMs"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Path        string `json:"path,omitempty"`
	Detail      string `json:"detail,omitempty"`
}

// PublicKeyResponse exposes the key messages are sealed to.
type PublicKeyResponse struct {
	PublicKey   string `json:"publicKey"`
	Fingerprint string `json:"fingerprint"`
}

// ErrorResponse is the JSON body of a failed request.
type ErrorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}
