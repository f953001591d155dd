package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
)

// Ограничения полей кадра (совпадают с форматом на проводе)
const (
	MaxUsername = 50
	MaxBody     = 512

	// FrameSize - полный размер одного кадра на проводе:
	// тип (2) + источник (50) + адресат (50) + длина тела (2) + тело (512)
	FrameSize = 2 + MaxUsername + MaxUsername + 2 + MaxBody
)

var (
	ErrShortFrame    = errors.New("frame shorter than wire size")
	ErrFieldTooLong  = errors.New("field exceeds wire limit")
	ErrMalformedBody = errors.New("declared body length exceeds limit")
)

// MsgType определяет тип кадра
type MsgType uint16

// Запросы клиента
const (
	TypeRegister MsgType = iota + 1
	TypeLogin
	TypeLogout
	TypePrivateMsg
	TypeGroupMsg
	TypeFriendRequest
	TypeFriendAccept
	TypeFriendDecline
	TypeUnfriend
	TypeFriendListRequest
	TypeGroupCreate
	TypeGroupJoin
	TypeGroupInvite
	TypeGroupRemove
	TypeGroupLeave
	TypeGroupListJoined
	TypeGroupListAll
)

// Ответы сервера
const (
	TypeRegisterOK MsgType = iota + 100
	TypeRegisterFail
	TypeLoginOK
	TypeLoginFail
	TypeReceivePrivate
	TypeReceiveGroup
	TypeOnlineList
	TypeOfflineMsg
	TypeFriendIncoming
	TypeFriendUpdate
	TypeFriendList
	TypeGroupResponse
	TypeGroupList
	TypeError
)

// Frame - одна логическая единица протокола. Кадр имеет фиксированный
// размер FrameSize, длина не передается отдельно.
type Frame struct {
	Type   MsgType
	Source string // имя отправителя; после логина сервер подставляет свое
	Target string // имя получателя или группы, в зависимости от типа
	Body   string // текст сообщения, учетные данные или статус
}

// Encode сериализует кадр в ровно FrameSize байт.
// Слишком длинные поля - ошибка валидации, а не молчаливое усечение.
func (f *Frame) Encode() ([]byte, error) {
	if len(f.Source) > MaxUsername || len(f.Target) > MaxUsername {
		return nil, ErrFieldTooLong
	}
	if len(f.Body) > MaxBody {
		return nil, ErrFieldTooLong
	}

	buf := make([]byte, FrameSize)
	binary.BigEndian.PutUint16(buf[0:2], uint16(f.Type))
	copy(buf[2:2+MaxUsername], f.Source)
	copy(buf[2+MaxUsername:2+2*MaxUsername], f.Target)
	binary.BigEndian.PutUint16(buf[2+2*MaxUsername:4+2*MaxUsername], uint16(len(f.Body)))
	copy(buf[4+2*MaxUsername:], f.Body)
	return buf, nil
}

// Decode разбирает ровно один кадр из первых FrameSize байт.
func Decode(data []byte) (*Frame, error) {
	if len(data) < FrameSize {
		return nil, ErrShortFrame
	}

	bodyLen := int(binary.BigEndian.Uint16(data[2+2*MaxUsername : 4+2*MaxUsername]))
	if bodyLen > MaxBody {
		// Такой кадр нельзя ресинхронизировать - соединение обрывается
		return nil, ErrMalformedBody
	}

	return &Frame{
		Type:   MsgType(binary.BigEndian.Uint16(data[0:2])),
		Source: trimZero(data[2 : 2+MaxUsername]),
		Target: trimZero(data[2+MaxUsername : 2+2*MaxUsername]),
		Body:   string(data[4+2*MaxUsername : 4+2*MaxUsername+bodyLen]),
	}, nil
}

// trimZero обрезает строку по первому нулевому байту
func trimZero(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}
