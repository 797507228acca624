package service

import "fmt"

type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindForbidden
	// KindConflict is a request that is well formed but not allowed in the
	// message's current state, e.g. canceling a message twice.
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	}
	return "unknown"
}

// Error is returned by every MessageService operation that fails for a reason
// the caller can act on. Message is shown to end users as-is.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrForbidden)
// works regardless of the message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrValidation = &Error{Kind: KindValidation}
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrForbidden  = &Error{Kind: KindForbidden}
	ErrConflict   = &Error{Kind: KindConflict}
)

const (
	msgNotFound         = "쪽지를 찾을 수 없습니다."
	msgCursorNotFound   = "커서로 지정한 쪽지를 찾을 수 없습니다."
	msgCursorInbox      = "커서가 받은 쪽지 목록과 일치하지 않습니다."
	msgCursorSent       = "커서가 보낸 쪽지 목록과 일치하지 않습니다."
	msgCursorStatus     = "커서가 상태 목록과 일치하지 않습니다."
	msgNotOwner         = "보낸 사람만 쪽지를 수정할 수 있습니다."
	msgAlreadyProcessed = "이미 처리된 쪽지는 취소할 수 없습니다."
	msgInvalidToIP      = "수신자 IP 주소 형식이 올바르지 않습니다."
	msgBodyRequired     = "쪽지 본문을 입력해 주세요."
	msgBodyTooLong      = "쪽지 본문은 2000자를 넘을 수 없습니다."
	msgSubjectTooLong   = "쪽지 제목은 120자를 넘을 수 없습니다."
	msgInvalidLimit     = "limit은 1에서 50 사이여야 합니다."
	msgInvalidStatus    = "조회할 상태는 sent, canceled, failed 중 하나여야 합니다."
	msgInvalidRequest   = "요청 값이 올바르지 않습니다."

	// MsgDeleted is the body returned after a successful delete.
	MsgDeleted = "쪽지가 삭제되었습니다."
)

func validationError(msg string) error { return &Error{Kind: KindValidation, Message: msg} }
func notFoundError(msg string) error   { return &Error{Kind: KindNotFound, Message: msg} }
func forbiddenError(msg string) error  { return &Error{Kind: KindForbidden, Message: msg} }
