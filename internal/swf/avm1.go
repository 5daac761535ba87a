package swf

import (
	"bytes"
	"encoding/binary"
)

// Bytecode opcodes for the class-registration stub emitted into
// DoInitAction. Only the handful of actions that stub uses are named.
const (
	actionEnd          = 0x00
	actionGetVariable  = 0x1C
	actionPop          = 0x17
	actionCallMethod   = 0x52
	actionConstantPool = 0x88
	actionPush         = 0x96
)

const (
	pushTypeInt       = 7
	pushTypeConstant8 = 8
)

// registerClassActions builds the init-action body that binds a named clip
// to its scripted class: Object.registerClass("clipName", ClassName).
// The constant pool fixes the string order; parseRegisterClass relies on it.
func registerClassActions(charID uint16, clipName, className string) []byte {
	var body bytes.Buffer
	writeU16(&body, charID)

	pool := []string{"Object", "registerClass", clipName, className}
	var poolBody bytes.Buffer
	var n [2]byte
	binary.LittleEndian.PutUint16(n[:], uint16(len(pool)))
	poolBody.Write(n[:])
	for _, s := range pool {
		writeString(&poolBody, s)
	}
	writeAction(&body, actionConstantPool, poolBody.Bytes())

	// Push "clipName", className (the class is resolved as a variable),
	// argument count 2, "Object", then call Object.registerClass.
	writeAction(&body, actionPush, []byte{pushTypeConstant8, 2})
	writeAction(&body, actionPush, []byte{pushTypeConstant8, 3})
	body.WriteByte(actionGetVariable)
	writeAction(&body, actionPush, []byte{pushTypeInt, 2, 0, 0, 0})
	writeAction(&body, actionPush, []byte{pushTypeConstant8, 0})
	body.WriteByte(actionGetVariable)
	writeAction(&body, actionPush, []byte{pushTypeConstant8, 1})
	body.WriteByte(actionCallMethod)
	body.WriteByte(actionPop)
	body.WriteByte(actionEnd)
	return body.Bytes()
}

func writeAction(buf *bytes.Buffer, code byte, body []byte) {
	buf.WriteByte(code)
	var n [2]byte
	binary.LittleEndian.PutUint16(n[:], uint16(len(body)))
	buf.Write(n[:])
	buf.Write(body)
}

// parseRegisterClass recovers (characterID, className) from an init-action
// body shaped like registerClassActions' output. Bodies that do not start
// with a four-entry constant pool are not ours; ok is false and the tag
// should be ignored.
func parseRegisterClass(body []byte) (charID uint16, className string, ok bool) {
	if len(body) < 5 {
		return 0, "", false
	}
	charID = binary.LittleEndian.Uint16(body)
	rest := body[2:]
	if rest[0] != actionConstantPool {
		return 0, "", false
	}
	poolLen := int(binary.LittleEndian.Uint16(rest[1:3]))
	if len(rest) < 3+poolLen {
		return 0, "", false
	}
	pool := rest[3 : 3+poolLen]
	count := int(binary.LittleEndian.Uint16(pool))
	if count != 4 {
		return 0, "", false
	}
	var strings []string
	rem := pool[2:]
	for i := 0; i < count; i++ {
		end := bytes.IndexByte(rem, 0)
		if end < 0 {
			return 0, "", false
		}
		strings = append(strings, string(rem[:end]))
		rem = rem[end+1:]
	}
	if strings[0] != "Object" || strings[1] != "registerClass" {
		return 0, "", false
	}
	return charID, strings[3], true
}
