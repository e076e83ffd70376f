package handlers

import (
	"sync"

	"geocommons/internal/services"
)

var (
	fileStorage services.FileStorage
	handlerMu   sync.RWMutex
)

// RegisterFileStorage sets the object storage used for attachments. Called
// once at startup after the S3 service comes up.
func RegisterFileStorage(s services.FileStorage) {
	handlerMu.Lock()
	defer handlerMu.Unlock()
	fileStorage = s
}

// GetFileStorage returns the registered object storage
func GetFileStorage() services.FileStorage {
	handlerMu.RLock()
	defer handlerMu.RUnlock()
	return fileStorage
}
