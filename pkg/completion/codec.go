package completion

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"mercator-hq/warden/pkg/providers"
)

// blobVersion is the first field of every encoded turn.
const blobVersion = 1

// encMode uses Core Deterministic Encoding, so the same turn always encodes
// to the same bytes.
var encMode cbor.EncMode

// decMode rejects duplicate map keys and ignores unknown fields.
var decMode cbor.DecMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("completion: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		DupMapKey:        cbor.DupMapKeyEnforcedAPF,
		MaxArrayElements: 4096,
	}.DecMode()
	if err != nil {
		panic("completion: CBOR decoder initialization failed: " + err.Error())
	}
}

// ErrEmptyBlob is returned when decoding a zero-length blob.
var ErrEmptyBlob = errors.New("empty context blob")

// turnRecord is the blob layout. Integer keys keep blobs small.
type turnRecord struct {
	Version  int           `cbor:"1,keyasint"`
	Messages []turnMessage `cbor:"2,keyasint"`
}

type turnMessage struct {
	Role    string `cbor:"1,keyasint"`
	Content string `cbor:"2,keyasint"`
}

// EncodeTurn encodes the messages of one turn as a context blob.
func EncodeTurn(messages []providers.Message) (Blob, error) {
	rec := turnRecord{Version: blobVersion, Messages: make([]turnMessage, len(messages))}
	for i, m := range messages {
		rec.Messages[i] = turnMessage{Role: m.Role, Content: m.Content}
	}
	data, err := encMode.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode context blob: %w", err)
	}
	return data, nil
}

// Seal encodes the blob of a turn in which prompt was answered with reply.
// Callers that rewrite a reply after Complete, such as PII redaction, seal
// the rewritten text so the blob never holds what was removed.
func Seal(prompt, reply string) (Blob, error) {
	return EncodeTurn([]providers.Message{
		{Role: providers.RoleUser, Content: prompt},
		{Role: providers.RoleAssistant, Content: reply},
	})
}

// DecodeTurn decodes a context blob produced by EncodeTurn.
func DecodeTurn(blob Blob) ([]providers.Message, error) {
	if len(blob) == 0 {
		return nil, ErrEmptyBlob
	}
	var rec turnRecord
	if err := decMode.Unmarshal(blob, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode context blob: %w", err)
	}
	if rec.Version != blobVersion {
		return nil, fmt.Errorf("unsupported context blob version %d", rec.Version)
	}
	out := make([]providers.Message, len(rec.Messages))
	for i, m := range rec.Messages {
		out[i] = providers.Message{Role: m.Role, Content: m.Content}
	}
	return out, nil
}
