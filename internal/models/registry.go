package models

import (
	"context"
	"sync"
	"time"
)

// AttachmentSigner generates signed URLs for attachment paths
type AttachmentSigner interface {
	GetSignedURL(ctx context.Context, path string, duration time.Duration) (string, error)
}

var (
	attachmentSigner AttachmentSigner
	registryMu       sync.RWMutex
)

// RegisterAttachmentSigner sets the URL signer used by Attachment.AfterFind
func RegisterAttachmentSigner(signer AttachmentSigner) {
	registryMu.Lock()
	defer registryMu.Unlock()
	attachmentSigner = signer
}
