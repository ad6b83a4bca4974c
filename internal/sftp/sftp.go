package sftp

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/pisshoff/pisshoff/internal/audit"
)

// Session is the narrow capability the subsystem needs from its SSH
// channel: write a chunk of raw bytes back to the client.
type Session interface {
	Write(p []byte)
}

// ConnectionState is the subset of per-connection state the subsystem
// touches: nothing beyond the audit log, since the fake filesystem a
// shell session sees has no bearing on what an sftp client is told.
type ConnectionState struct {
	Audit *audit.Log
}

// Subsystem implements the sftp channel subsystem: every request that
// arrives gets a plausible, protocol-correct reply, and file writes and
// directory creations are recorded to the audit log. No bytes are ever
// actually stored or read back.
type Subsystem struct {
	openFiles map[string]string // handle -> path, keyed by a fresh uuid per Open
	pending   []byte
}

// New returns an empty subsystem ready to receive Data.
func New() *Subsystem {
	return &Subsystem{openFiles: map[string]string{}}
}

// Name is the subsystem name clients request to select sftp, matching
// server.rs's subsystem dispatch table.
const Name = "sftp"

// Data feeds the channel's next chunk of bytes to the subsystem. It may
// contain zero, one, or several complete packets, and a packet may span
// multiple calls.
func (s *Subsystem) Data(state *ConnectionState, session Session, data []byte) {
	s.pending = append(s.pending, data...)

	for {
		pkt, consumed, ok := parseWirePacket(s.pending)
		if !ok {
			break
		}
		s.pending = s.pending[consumed:]
		s.handle(state, session, pkt)
	}
}

func (s *Subsystem) handle(state *ConnectionState, session Session, pkt WirePacket) {
	switch pkt.Type {
	case PacketInit:
		// The client's own protocol version arrives in place of a
		// request id; echo it back capped at the version this
		// responder was built against.
		version := pkt.RequestID
		if version > 6 {
			version = 6
		}
		session.Write(WirePacket{Type: PacketVersion, RequestID: version}.MarshalBinary())

	case PacketStat, PacketLstat:
		if _, _, ok := takeString(pkt.Data); !ok {
			slog.Warn("malformed sftp stat packet", "type", pkt.Type)
			return
		}
		s.reply(session, pkt.RequestID, statusResponse(StatusNoSuchFile, "No such file or directory"), PacketStatus)

	case PacketOpen:
		path, rest, ok := takeString(pkt.Data)
		if !ok {
			slog.Warn("malformed sftp open packet")
			return
		}
		if _, rest, ok = takeUint32(rest); !ok {
			slog.Warn("malformed sftp open packet")
			return
		}
		if _, _, ok = takeUint32(rest); !ok {
			slog.Warn("malformed sftp open packet")
			return
		}

		handle := uuid.New().String()
		s.openFiles[handle] = path
		s.reply(session, pkt.RequestID, handleResponse(handle), PacketHandle)

	case PacketFSetStat, PacketSetStat:
		if _, _, ok := takeString(pkt.Data); !ok {
			slog.Warn("malformed sftp setstat packet", "type", pkt.Type)
			return
		}
		s.reply(session, pkt.RequestID, statusResponse(StatusOk, ""), PacketStatus)

	case PacketWrite:
		handle, rest, ok := takeString(pkt.Data)
		if !ok {
			slog.Warn("malformed sftp write packet")
			return
		}
		var offset uint64
		if offset, rest, ok = takeUint64(rest); !ok {
			slog.Warn("malformed sftp write packet")
			return
		}
		var content string
		if content, _, ok = takeString(rest); !ok {
			slog.Warn("malformed sftp write packet")
			return
		}

		path, known := s.openFiles[handle]
		if !known {
			s.reply(session, pkt.RequestID, statusResponse(StatusInvalidHandle, ""), PacketStatus)
			return
		}

		slog.Debug("sftp write", "path", path, "offset", offset, "len", len(content))
		state.Audit.PushAction(audit.WriteFile{Path: path, Content: []byte(content)})
		s.reply(session, pkt.RequestID, statusResponse(StatusOk, ""), PacketStatus)

	case PacketClose:
		handle, _, ok := takeString(pkt.Data)
		if !ok {
			slog.Warn("malformed sftp close packet")
			return
		}
		delete(s.openFiles, handle)
		s.reply(session, pkt.RequestID, statusResponse(StatusOk, ""), PacketStatus)

	case PacketRealPath:
		path, rest, ok := takeString(pkt.Data)
		if !ok {
			slog.Warn("malformed sftp realpath packet")
			return
		}
		var control byte
		if len(rest) > 0 {
			control = rest[0]
		}

		// SSH_FXP_REALPATH_STAT_ALWAYS: the client wants us to stat
		// the resolved path too, which we can't plausibly satisfy.
		if control == 2 {
			s.reply(session, pkt.RequestID, statusResponse(StatusNoSuchFile, "No such file or directory"), PacketStatus)
			return
		}
		s.reply(session, pkt.RequestID, nameResponse([]nameResponseFile{{
			name:     path,
			longName: path,
			typ:      FileTypeUnknown,
		}}), PacketName)

	case PacketMkdir:
		path, _, ok := takeString(pkt.Data)
		if !ok {
			slog.Warn("malformed sftp mkdir packet")
			return
		}
		state.Audit.PushAction(audit.Mkdir{Path: path})
		s.reply(session, pkt.RequestID, statusResponse(StatusOk, ""), PacketStatus)

	default:
		slog.Warn("unknown sftp packet", "type", pkt.Type, "request_id", pkt.RequestID)
	}
}

func (s *Subsystem) reply(session Session, requestID uint32, data []byte, typ PacketType) {
	session.Write(WirePacket{Type: typ, RequestID: requestID, Data: data}.MarshalBinary())
}
