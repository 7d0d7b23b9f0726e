package protocol

import (
	"encoding/json"
)

const (
	// HeaderSiteVersion carries the site-server release in every frame header.
	HeaderSiteVersion = "site-server-version"

	SiteVersion = "0.9.4"
)

// TransportPackage is the inner unit carried by a command body: a small
// header map plus an opaque data blob. The completion frame is a package
// with the header only.
type TransportPackage struct {
	Header map[string]string `json:"header,omitempty"`
	Data   json.RawMessage   `json:"data,omitempty"`
}

func NewTransportPackage(data []byte) *TransportPackage {
	return &TransportPackage{
		Header: map[string]string{HeaderSiteVersion: SiteVersion},
		Data:   data,
	}
}

func (p *TransportPackage) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

// MsgToClientFrame frames a non-empty batch body into the outbound data
// command understood by the transport.
func MsgToClientFrame(body []byte) ([]byte, error) {
	raw, err := NewTransportPackage(body).Marshal()
	if err != nil {
		return nil, err
	}
	return NewCommand().
		AddString(ProtocolVersion).
		AddString(CmdMsgToClient).
		Add(raw).
		Encode(), nil
}

// MsgFinishFrame frames the terminal empty-body package that ends one
// sync round.
func MsgFinishFrame() ([]byte, error) {
	raw, err := NewTransportPackage(nil).Marshal()
	if err != nil {
		return nil, err
	}
	return NewCommand().
		AddString(ProtocolVersion).
		AddString(CmdMsgFinish).
		Add(raw).
		Encode(), nil
}
