// Package sftp implements just enough of the SSH File Transfer Protocol
// (draft-ietf-secsh-filexfer-13) to convince a real client it is talking to
// a server: every request gets a plausible reply, but nothing is read from
// or written to a real filesystem. Writes and directory creation are
// recorded to the audit log instead.
package sftp

import (
	"encoding/binary"
	"fmt"
)

// PacketType is the single byte following the length prefix in every SFTP
// packet on the wire.
type PacketType byte

const (
	PacketInit     PacketType = 1
	PacketVersion  PacketType = 2
	PacketOpen     PacketType = 3
	PacketClose    PacketType = 4
	PacketRead     PacketType = 5
	PacketWrite    PacketType = 6
	PacketLstat    PacketType = 7
	PacketFstat    PacketType = 8
	PacketSetStat  PacketType = 9
	PacketFSetStat PacketType = 10
	PacketOpenDir  PacketType = 11
	PacketReadDir  PacketType = 12
	PacketRemove   PacketType = 13
	PacketMkdir    PacketType = 14
	PacketRmdir    PacketType = 15
	PacketRealPath PacketType = 16
	PacketStat     PacketType = 17
	PacketRename   PacketType = 18
	PacketReadLink PacketType = 19
	PacketLink     PacketType = 21
	PacketBlock    PacketType = 22
	PacketUnblock  PacketType = 23

	PacketStatus PacketType = 101
	PacketHandle PacketType = 102
	PacketData   PacketType = 103
	PacketName   PacketType = 104
	PacketAttrs  PacketType = 105

	PacketExtended      PacketType = 200
	PacketExtendedReply PacketType = 201
)

// StatusCode is the 32-bit code carried in a PacketStatus response.
type StatusCode uint32

const (
	StatusOk                  StatusCode = 0
	StatusEOF                 StatusCode = 1
	StatusNoSuchFile          StatusCode = 2
	StatusPermissionDenied    StatusCode = 3
	StatusFailure             StatusCode = 4
	StatusBadMessage          StatusCode = 5
	StatusNoConnection        StatusCode = 6
	StatusConnectionLost      StatusCode = 7
	StatusOpUnsupported       StatusCode = 8
	StatusInvalidHandle       StatusCode = 9
	StatusNoSuchPath          StatusCode = 10
	StatusFileAlreadyExists   StatusCode = 11
	StatusWriteProtect        StatusCode = 12
	StatusNoMedia             StatusCode = 13
	StatusNoSpaceOnFilesystem StatusCode = 14
	StatusQuotaExceeded       StatusCode = 15
	StatusUnknownPrincipal    StatusCode = 16
	StatusLockConflict        StatusCode = 17
	StatusDirNotEmpty         StatusCode = 18
	StatusNotADirectory       StatusCode = 19
	StatusInvalidFilename     StatusCode = 20
	StatusLinkLoop            StatusCode = 21
)

// FileType is the single byte reported in a name response's attrs blob.
type FileType byte

const (
	FileTypeRegular   FileType = 1
	FileTypeDirectory FileType = 2
	FileTypeSymlink   FileType = 3
	FileTypeSpecial   FileType = 4
	FileTypeUnknown   FileType = 5
)

// WirePacket is one length-prefixed SFTP packet: a 4-byte big-endian
// length covering everything after itself, a type byte, a 4-byte request
// id, and a type-specific payload.
type WirePacket struct {
	Type      PacketType
	RequestID uint32
	Data      []byte
}

// MarshalBinary encodes the packet as it goes on the wire.
func (p WirePacket) MarshalBinary() []byte {
	out := make([]byte, 4+1+4+len(p.Data))
	binary.BigEndian.PutUint32(out[0:4], uint32(1+4+len(p.Data)))
	out[4] = byte(p.Type)
	binary.BigEndian.PutUint32(out[5:9], p.RequestID)
	copy(out[9:], p.Data)
	return out
}

// parseWirePacket reads exactly one packet from the front of buf. It
// returns the number of bytes consumed, or ok=false if buf does not yet
// hold a complete packet (the caller should wait for more data).
func parseWirePacket(buf []byte) (pkt WirePacket, consumed int, ok bool) {
	if len(buf) < 9 {
		return WirePacket{}, 0, false
	}
	length := binary.BigEndian.Uint32(buf[0:4])
	if length < 5 {
		return WirePacket{}, 0, false
	}
	total := 4 + int(length)
	if len(buf) < total {
		return WirePacket{}, 0, false
	}
	return WirePacket{
		Type:      PacketType(buf[4]),
		RequestID: binary.BigEndian.Uint32(buf[5:9]),
		Data:      buf[9:total],
	}, total, true
}

func takeString(data []byte) (s string, rest []byte, ok bool) {
	if len(data) < 4 {
		return "", nil, false
	}
	n := binary.BigEndian.Uint32(data[0:4])
	if uint64(len(data)-4) < uint64(n) {
		return "", nil, false
	}
	return string(data[4 : 4+n]), data[4+n:], true
}

func takeUint32(data []byte) (v uint32, rest []byte, ok bool) {
	if len(data) < 4 {
		return 0, nil, false
	}
	return binary.BigEndian.Uint32(data[0:4]), data[4:], true
}

func takeUint64(data []byte) (v uint64, rest []byte, ok bool) {
	if len(data) < 8 {
		return 0, nil, false
	}
	return binary.BigEndian.Uint64(data[0:8]), data[8:], true
}

func appendString(out []byte, s string) []byte {
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(s)))
	out = append(out, length[:]...)
	return append(out, s...)
}

// statusResponse builds a PacketStatus payload: code, message, empty
// language tag.
func statusResponse(code StatusCode, message string) []byte {
	out := make([]byte, 0, 4+4+len(message)+4)
	var codeBytes [4]byte
	binary.BigEndian.PutUint32(codeBytes[:], uint32(code))
	out = append(out, codeBytes[:]...)
	out = appendString(out, message)
	out = appendString(out, "")
	return out
}

// handleResponse builds a PacketHandle payload carrying a handle's
// canonical 36-character string form.
func handleResponse(handle string) []byte {
	return appendString(nil, handle)
}

// attrsBytes encodes a minimal fileattrs blob: no valid-attribute flags
// set, just the type byte real clients expect when flags are all zero is
// actually nothing more — callers that need a type tack it on themselves
// via nameResponse.
func attrsBytes() []byte {
	return []byte{0, 0, 0, 0}
}

type nameResponseFile struct {
	name     string
	longName string
	typ      FileType
}

// nameResponse builds a PacketName payload listing files, used for both
// realpath replies (a single synthetic entry) and any future readdir
// support.
func nameResponse(files []nameResponseFile) []byte {
	out := make([]byte, 0, 4+len(files)*32)
	var count [4]byte
	binary.BigEndian.PutUint32(count[:], uint32(len(files)))
	out = append(out, count[:]...)
	for _, f := range files {
		out = appendString(out, f.name)
		out = appendString(out, f.longName)
		out = append(out, attrsBytes()...)
		out = append(out, byte(f.typ))
	}
	out = append(out, 1)
	return out
}

func (t PacketType) String() string {
	return fmt.Sprintf("PacketType(%d)", byte(t))
}
