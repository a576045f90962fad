package savebridge

import "github.com/opd-ai/savebridge/protocol"

// Message keys, one per error kind plus a fallback.
const (
	KeyConnectionFail     = "SOCKET_CONNECTION_FAIL"
	KeyUnsupportedVersion = "BRIDGE_ERROR_UNSUPPORTED_PROTOCOL_VERSION"
	KeyUnexpectedMessage  = "BRIDGE_ERROR_UNEXPECTED_MESSAGE"
	KeyReceiveFail        = "DATA_RECEIVE_FAIL"
	KeySendFail           = "DATA_SEND_FAIL"
	KeyDataCorrupted      = "BRIDGE_ERROR_FILE_DATA_CORRUPTED"
	KeyUnhandled          = "BRIDGE_ERROR_UNHANDLED"
)

// Localizer produces the user-facing message for an error kind.
type Localizer interface {
	Localize(kind protocol.ErrorKind) string
}

// MessageKey returns the catalog key for kind.
func MessageKey(kind protocol.ErrorKind) string {
	switch kind {
	case protocol.KindConnection:
		return KeyConnectionFail
	case protocol.KindUnsupportedVersion:
		return KeyUnsupportedVersion
	case protocol.KindUnexpectedMessage:
		return KeyUnexpectedMessage
	case protocol.KindDataRead:
		return KeyReceiveFail
	case protocol.KindDataWrite:
		return KeySendFail
	case protocol.KindDataCorrupted:
		return KeyDataCorrupted
	default:
		return KeyUnhandled
	}
}

// Catalog is a Localizer backed by a key to message table.
type Catalog map[string]string

// Localize looks up the message for kind, falling back to the unhandled
// message and finally to the key itself.
func (c Catalog) Localize(kind protocol.ErrorKind) string {
	key := MessageKey(kind)
	if msg, ok := c[key]; ok {
		return msg
	}
	if msg, ok := c[KeyUnhandled]; ok {
		return msg
	}
	return key
}

// EnglishCatalog is the default message table.
var EnglishCatalog = Catalog{
	KeyConnectionFail:     "Could not establish a connection with the other device.",
	KeyUnsupportedVersion: "The other device uses an incompatible bridge version. Update both devices and try again.",
	KeyUnexpectedMessage:  "The other device sent an unexpected message.",
	KeyReceiveFail:        "Failed to receive data from the other device.",
	KeySendFail:           "Failed to send data to the other device.",
	KeyDataCorrupted:      "The received save data is corrupted.",
	KeyUnhandled:          "An unhandled bridge error occurred.",
}
