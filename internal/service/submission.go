package service

import (
	"github.com/zync/zync-go/internal/model"
	"github.com/zync/zync-go/internal/schema"
)

// clipSchema builds the required shape of a submission. The encryption type
// must be one of the configured algorithm identifiers.
func clipSchema(encryptionTypes []model.EncryptionType) schema.Node {
	encTypes := make([]string, len(encryptionTypes))
	for i, et := range encryptionTypes {
		encTypes[i] = string(et)
	}
	payloadTypes := make([]string, len(model.PayloadTypes))
	for i, pt := range model.PayloadTypes {
		payloadTypes[i] = string(pt)
	}

	return schema.Object(
		schema.Key("timestamp", schema.Integer()),
		schema.Key("hash", schema.Object(
			schema.Key("crc32", schema.String()),
		)),
		schema.Key("encryption", schema.Object(
			schema.Key("type", schema.OneOf(encTypes...)),
			schema.Key("iv", schema.String()),
			schema.Key("salt", schema.String()),
		)),
		schema.Key("payload", schema.String()),
		schema.Key("payload-type", schema.OneOf(payloadTypes...)),
	)
}

// submissionFromDoc converts a document that already passed clipSchema.
func submissionFromDoc(doc any) model.ClipSubmission {
	m := doc.(map[string]any)
	hash := m["hash"].(map[string]any)
	enc := m["encryption"].(map[string]any)
	ts, _ := schema.Int64(m["timestamp"])
	pt, _ := model.ParsePayloadType(m["payload-type"].(string))

	return model.ClipSubmission{
		Timestamp: ts,
		Hash:      model.Hash{CRC32: hash["crc32"].(string)},
		Encryption: model.Encryption{
			Type: model.EncryptionType(enc["type"].(string)),
			IV:   enc["iv"].(string),
			Salt: enc["salt"].(string),
		},
		Payload:     m["payload"].(string),
		PayloadType: pt,
	}
}
