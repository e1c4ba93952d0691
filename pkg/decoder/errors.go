package decoder

import (
	"errors"
	"fmt"
)

// Decode failure codes.
const (
	CodeEmptyInput      = "EMPTY_INPUT"
	CodeUndetected      = "UNDETECTED"
	CodeInvalidInput    = "INVALID_INPUT"
	CodeUnsupportedType = "UNSUPPORTED_TYPE"
)

// Messages shown to users.
const (
	MsgEmptyInput      = "입력이 비어있습니다."
	MsgUndetected      = "지원되는 인코딩 형식을 감지할 수 없습니다."
	MsgNotUTF8         = "디코딩 결과가 유효한 UTF-8 텍스트가 아닙니다."
	msgUnsupportedType = "지원하지 않는 디코더입니다: %s"
)

// ErrInternal marks failures that are not caused by the input (a defect in a
// format decoder). Callers surface it as an unexpected failure.
var ErrInternal = errors.New("decoder internal error")

// DecodeError is a decode failure caused by the input or the requested type.
type DecodeError struct {
	Code    string
	Message string
}

func (e *DecodeError) Error() string {
	return e.Message
}

func newDecodeError(code, message string) *DecodeError {
	return &DecodeError{Code: code, Message: message}
}

func invalidInput(format string, args ...interface{}) *DecodeError {
	return newDecodeError(CodeInvalidInput, fmt.Sprintf(format, args...))
}

func unsupportedType(t Type) *DecodeError {
	return newDecodeError(CodeUnsupportedType, fmt.Sprintf(msgUnsupportedType, t))
}
