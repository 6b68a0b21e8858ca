package live

// Wire types for the Gemini BidiGenerateContent websocket protocol.
// Note: the API uses camelCase for JSON field names.

// setupMessage is the first client frame on a new connection.
type setupMessage struct {
	Setup *setupPayload `json:"setup,omitempty"`
}

type setupPayload struct {
	Model             string         `json:"model"` // "models/<id>"
	GenerationConfig  *liveGenConfig `json:"generationConfig,omitempty"`
	SystemInstruction *liveContent   `json:"systemInstruction,omitempty"`
}

type liveGenConfig struct {
	ResponseModalities []string      `json:"responseModalities,omitempty"`
	SpeechConfig       *speechConfig `json:"speechConfig,omitempty"`
}

type speechConfig struct {
	VoiceConfig *voiceConfig `json:"voiceConfig,omitempty"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig *prebuiltVoiceConfig `json:"prebuiltVoiceConfig,omitempty"`
}

type prebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName,omitempty"`
}

type liveContent struct {
	Role  string     `json:"role,omitempty"`
	Parts []livePart `json:"parts,omitempty"`
}

type livePart struct {
	Text       string    `json:"text,omitempty"`
	InlineData *liveBlob `json:"inlineData,omitempty"`
}

type liveBlob struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"` // base64 encoded
}

// realtimeInputMessage carries one microphone frame upstream.
type realtimeInputMessage struct {
	RealtimeInput *realtimeInput `json:"realtimeInput,omitempty"`
}

type realtimeInput struct {
	Audio *liveBlob `json:"audio,omitempty"`
}

// serverMessage is the envelope for every server frame.
type serverMessage struct {
	SetupComplete *setupComplete `json:"setupComplete,omitempty"`
	ServerContent *serverContent `json:"serverContent,omitempty"`
	GoAway        *goAway        `json:"goAway,omitempty"`
}

type setupComplete struct{}

type serverContent struct {
	ModelTurn    *liveContent `json:"modelTurn,omitempty"`
	TurnComplete bool         `json:"turnComplete,omitempty"`
	Interrupted  bool         `json:"interrupted,omitempty"`
}

type goAway struct {
	TimeLeft string `json:"timeLeft,omitempty"`
}
