package model

import "unicode/utf8"

// PayloadType is the kind of content a clip carries.
type PayloadType string

const (
	PayloadText   PayloadType = "TEXT"
	PayloadImage  PayloadType = "IMAGE"
	PayloadVideo  PayloadType = "VIDEO"
	PayloadBinary PayloadType = "BINARY"
)

// PayloadTypes lists every accepted payload type.
var PayloadTypes = []PayloadType{PayloadText, PayloadImage, PayloadVideo, PayloadBinary}

// ParsePayloadType returns the PayloadType named by s.
func ParsePayloadType(s string) (PayloadType, bool) {
	for _, pt := range PayloadTypes {
		if string(pt) == s {
			return pt, true
		}
	}
	return "", false
}

// EncryptionType identifies the client-side algorithm a payload was sealed with.
// The server never decrypts; it only records the identifier.
type EncryptionType string

// EncryptionAES256GCM is the algorithm every current client uses.
const EncryptionAES256GCM EncryptionType = "AES256-GCM-NOPADDING"

// Hash carries the client-computed checksum of a payload.
type Hash struct {
	CRC32 string `json:"crc32"`
}

// Encryption carries the parameters needed by other devices to decrypt a payload.
type Encryption struct {
	Type EncryptionType `json:"type"`
	IV   string         `json:"iv"`
	Salt string         `json:"salt"`
}

// ClipSubmission is a structurally valid clip pushed by a device.
type ClipSubmission struct {
	Timestamp   int64       `json:"timestamp"`
	Hash        Hash        `json:"hash"`
	Encryption  Encryption  `json:"encryption"`
	Payload     string      `json:"payload"`
	PayloadType PayloadType `json:"payload-type"`
}

// Size returns the payload length in characters.
func (s ClipSubmission) Size() int64 {
	return int64(utf8.RuneCountInString(s.Payload))
}

// ClipRecord is the immutable metadata of an accepted clip. The payload itself
// lives in the content store and is addressed by PayloadRef.
type ClipRecord struct {
	OwnerID     int64       `json:"-"`
	Timestamp   int64       `json:"timestamp"`
	Hash        Hash        `json:"hash"`
	Encryption  Encryption  `json:"encryption"`
	PayloadType PayloadType `json:"payload-type"`
	PayloadRef  string      `json:"payload-ref"`
	PayloadSize int64       `json:"payload-size"`
	ReceivedAt  int64       `json:"received-at"`
}
