package server

import (
	"encoding/binary"
	"fmt"
	"net"

	"github.com/teampathfinders/vex/pkg/raknet"
)

// Offline datagram ids, bit-exact with the RakNet/Bedrock offline
// handshake the teacher's source/protocol/raknet.go dispatched on
// before any session existed.
const (
	idUnconnectedPing  byte = 0x02
	idOpenConnReqOne   byte = 0x05
	idOpenConnReplyOne byte = 0x06
	idOpenConnReqTwo   byte = 0x07
	idOpenConnReplyTwo byte = 0x08
	idUnconnectedPong  byte = 0x1c
)

// IsOffline reports whether a datagram belongs to the pre-session
// handshake rather than an established session (spec.md §7).
func IsOffline(firstByte byte) bool {
	switch firstByte {
	case idUnconnectedPing, idOpenConnReqOne, idOpenConnReqTwo:
		return true
	default:
		return false
	}
}

// handshake replies to the offline open-connection exchange and
// reports the negotiated MTU once the peer's second request arrives,
// signalling the caller to create a Session.
type handshake struct {
	guid uint64
}

func newHandshake(guid uint64) *handshake {
	return &handshake{guid: guid}
}

// handleOffline processes one offline datagram. readyMTU is non-zero
// exactly when the handshake completed and a Session should be
// created for addr.
func (h *handshake) handleOffline(socket raknet.Socket, addr *net.UDPAddr, data []byte) (readyMTU uint16, err error) {
	if len(data) < 1+len(raknet.OfflineMessageDataID) {
		return 0, fmt.Errorf("offline datagram too short")
	}
	if !magicMatches(data[1:]) {
		return 0, fmt.Errorf("offline datagram missing magic")
	}

	switch data[0] {
	case idUnconnectedPing:
		return 0, h.sendUnconnectedPong(socket, addr)
	case idOpenConnReqOne:
		return 0, h.sendOpenConnectionReplyOne(socket, addr, len(data))
	case idOpenConnReqTwo:
		mtu, cerr := h.sendOpenConnectionReplyTwo(socket, addr, data)
		return mtu, cerr
	default:
		return 0, fmt.Errorf("unexpected offline datagram kind 0x%02x", data[0])
	}
}

func magicMatches(data []byte) bool {
	if len(data) < len(raknet.OfflineMessageDataID) {
		return false
	}
	for i, b := range raknet.OfflineMessageDataID {
		if data[i] != b {
			return false
		}
	}
	return true
}

func (h *handshake) sendUnconnectedPong(socket raknet.Socket, addr *net.UDPAddr) error {
	buf := make([]byte, 0, 32)
	buf = append(buf, idUnconnectedPong)
	buf = append(buf, raknet.OfflineMessageDataID[:]...)
	var guidBuf [8]byte
	binary.BigEndian.PutUint64(guidBuf[:], h.guid)
	buf = append(buf, guidBuf[:]...)
	_, err := socket.WriteToUDP(buf, addr)
	return err
}

// sendOpenConnectionReplyOne echoes the magic, the server GUID and a
// flag saying no security layer is offered, letting the client pick
// the MTU for its second request (spec.md §7, no cryptographic
// handshake in scope).
func (h *handshake) sendOpenConnectionReplyOne(socket raknet.Socket, addr *net.UDPAddr, requestLen int) error {
	buf := make([]byte, 0, 32)
	buf = append(buf, idOpenConnReplyOne)
	buf = append(buf, raknet.OfflineMessageDataID[:]...)
	var guidBuf [8]byte
	binary.BigEndian.PutUint64(guidBuf[:], h.guid)
	buf = append(buf, guidBuf[:]...)
	buf = append(buf, 0) // useSecurity
	var mtuBuf [2]byte
	binary.BigEndian.PutUint16(mtuBuf[:], clampMTU(uint16(requestLen)))
	buf = append(buf, mtuBuf[:]...)
	_, err := socket.WriteToUDP(buf, addr)
	return err
}

// sendOpenConnectionReplyTwo finalizes the handshake: echoes the
// client-proposed MTU and reports readiness for the caller to spin up
// a Session.
func (h *handshake) sendOpenConnectionReplyTwo(socket raknet.Socket, addr *net.UDPAddr, request []byte) (uint16, error) {
	tail := request[1+len(raknet.OfflineMessageDataID):]
	mtu := raknet.DefaultMTU
	if len(tail) >= 2 {
		mtu = int(binary.BigEndian.Uint16(tail[len(tail)-2:]))
	}
	mtu16 := clampMTU(uint16(mtu))

	buf := make([]byte, 0, 32)
	buf = append(buf, idOpenConnReplyTwo)
	buf = append(buf, raknet.OfflineMessageDataID[:]...)
	var guidBuf [8]byte
	binary.BigEndian.PutUint64(guidBuf[:], h.guid)
	buf = append(buf, guidBuf[:]...)
	var mtuBuf [2]byte
	binary.BigEndian.PutUint16(mtuBuf[:], mtu16)
	buf = append(buf, mtuBuf[:]...)
	buf = append(buf, 0) // useEncryption; the Encryptor hook is negotiated by the game layer, not here

	if _, err := socket.WriteToUDP(buf, addr); err != nil {
		return 0, err
	}
	return mtu16, nil
}

func clampMTU(mtu uint16) uint16 {
	if mtu < raknet.MinMTUSize {
		return raknet.MinMTUSize
	}
	if mtu > raknet.MaxMTUSize {
		return raknet.MaxMTUSize
	}
	return mtu
}
