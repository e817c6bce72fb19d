package domain

import "github.com/google/uuid"

type Operation string

const (
	OperationEncrypt Operation = "encrypt"
	OperationDecrypt Operation = "decrypt"
)

// CipherRequest is one message submitted to a remote cipher worker.
type CipherRequest struct {
	RequestID string    `json:"request_id"`
	Operation Operation `json:"operation"`
	Data      []byte    `json:"data"`
}

// CipherReply carries either the processed data or the failure text for the
// request with the same ID.
type CipherReply struct {
	RequestID string `json:"request_id"`
	Data      []byte `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
}

func NewCipherRequest(op Operation, data []byte) CipherRequest {
	return CipherRequest{
		RequestID: uuid.New().String(),
		Operation: op,
		Data:      data,
	}
}
