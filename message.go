package wsession

import "fmt"

type PayloadKind byte

// Values follow the websocket opcodes for data frames.
const (
	TextPayload   PayloadKind = 1
	BinaryPayload PayloadKind = 2
)

func (k PayloadKind) Is(other PayloadKind) bool {
	return k == other
}

func (k PayloadKind) IsText() bool {
	return k.Is(TextPayload)
}

func (k PayloadKind) IsBinary() bool {
	return k.Is(BinaryPayload)
}

func (k PayloadKind) String() string {
	switch k {
	case TextPayload:
		return "text"
	case BinaryPayload:
		return "binary"
	default:
		return fmt.Sprintf("kind(%d)", byte(k))
	}
}

// Payload is a single websocket data message, either text or binary.
type Payload struct {
	Kind PayloadKind
	Data []byte
}

// Text returns the payload contents as a string regardless of its kind.
func (p Payload) Text() string {
	return string(p.Data)
}

func (p Payload) Valid() bool {
	return p.Kind.IsText() || p.Kind.IsBinary()
}

func (p Payload) String() string {
	if p.Kind.IsText() {
		return fmt.Sprintf("Payload{kind=%s,data=%s}", p.Kind, p.Data)
	}
	return fmt.Sprintf("Payload{kind=%s,len=%d}", p.Kind, len(p.Data))
}

func NewTextPayload(text string) Payload {
	return Payload{Kind: TextPayload, Data: []byte(text)}
}

func NewBinaryPayload(data []byte) Payload {
	return Payload{Kind: BinaryPayload, Data: data}
}
