package responses

type ChatReply struct {
	Reply   string `json:"reply"`
	Model   string `json:"model"`
	Context string `json:"context,omitempty"`
}
