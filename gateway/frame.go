package gateway

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// Wire framing: [len:u32le][type:u8][payload], len counting the type
// byte. Integers are little-endian; prices travel as IEEE doubles and
// are converted to ticks at the edge.
const (
	MsgNewOrder    byte = 0x01
	MsgCancelOrder byte = 0x02
	MsgAck         byte = 0x10
	MsgCancelled   byte = 0x11
	MsgReject      byte = 0x12
)

// Reject reasons.
const (
	RejectMalformed    byte = 1
	RejectValidation   byte = 2
	RejectUnknownOrder byte = 3
)

const maxSymbolLen = 16

var (
	errFrameTooLarge = errors.New("gateway: frame exceeds size limit")
	errShortPayload  = errors.New("gateway: short payload")
)

// NewOrderRequest is a decoded MsgNewOrder payload.
type NewOrderRequest struct {
	ClientID uint64
	Side     byte // 0 = buy, 1 = sell
	Price    float64
	Qty      uint64
	Symbol   string
}

// ReadFrame reads one framed message from r.
func ReadFrame(r io.Reader, maxSize int) (byte, []byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return 0, nil, err
	}
	size := binary.LittleEndian.Uint32(header[:])
	if size < 1 {
		return 0, nil, errShortPayload
	}
	if int(size) > maxSize {
		return 0, nil, errFrameTooLarge
	}
	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return 0, nil, err
	}
	return body[0], body[1:], nil
}

// WriteFrame writes one framed message to w.
func WriteFrame(w io.Writer, msgType byte, payload []byte) error {
	frame := make([]byte, 5+len(payload))
	binary.LittleEndian.PutUint32(frame[:4], uint32(1+len(payload)))
	frame[4] = msgType
	copy(frame[5:], payload)
	_, err := w.Write(frame)
	return err
}

// payload: client_id u64, side u8, price f64, qty u64, sym_len u16, sym
func decodeNewOrder(b []byte) (NewOrderRequest, error) {
	var req NewOrderRequest
	if len(b) < 27 {
		return req, errShortPayload
	}
	req.ClientID = binary.LittleEndian.Uint64(b[0:8])
	req.Side = b[8]
	req.Price = math.Float64frombits(binary.LittleEndian.Uint64(b[9:17]))
	req.Qty = binary.LittleEndian.Uint64(b[17:25])
	symLen := int(binary.LittleEndian.Uint16(b[25:27]))
	if len(b) != 27+symLen {
		return req, errShortPayload
	}
	req.Symbol = string(b[27 : 27+symLen])
	return req, nil
}

// EncodeNewOrder builds a MsgNewOrder payload; the client side of
// decodeNewOrder.
func EncodeNewOrder(req NewOrderRequest) ([]byte, error) {
	if len(req.Symbol) > math.MaxUint16 {
		return nil, fmt.Errorf("gateway: symbol too long: %d bytes", len(req.Symbol))
	}
	b := make([]byte, 27+len(req.Symbol))
	binary.LittleEndian.PutUint64(b[0:8], req.ClientID)
	b[8] = req.Side
	binary.LittleEndian.PutUint64(b[9:17], math.Float64bits(req.Price))
	binary.LittleEndian.PutUint64(b[17:25], req.Qty)
	binary.LittleEndian.PutUint16(b[25:27], uint16(len(req.Symbol)))
	copy(b[27:], req.Symbol)
	return b, nil
}

func decodeCancelOrder(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, errShortPayload
	}
	return binary.LittleEndian.Uint64(b), nil
}

// EncodeCancelOrder builds a MsgCancelOrder payload.
func EncodeCancelOrder(orderID uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, orderID)
	return b
}

func encodeAck(orderID uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, orderID)
	return b
}

func encodeReject(reason byte) []byte {
	return []byte{reason}
}
