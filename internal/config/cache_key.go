package config

import (
	"fmt"
	"strings"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// SheetRowsKey returns the cache key for the raw rows of a worksheet
func (r *CacheKeyStruct) SheetRowsKey(worksheet string) string {
	return fmt.Sprintf("sheet:%s:rows", strings.ToLower(strings.TrimSpace(worksheet)))
}

// SessionKey returns the registry key for an issued session token ID
func (r *CacheKeyStruct) SessionKey(jti string) string {
	return fmt.Sprintf("session:%s", jti)
}

// GradeChangesChannel returns the Redis PubSub channel for grade change events
func (r *CacheKeyStruct) GradeChangesChannel() string {
	return "grades:changes"
}

var CacheKey = NewCacheKeyStruct()
