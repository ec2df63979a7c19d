package config

import (
	"fmt"

	"github.com/stemsi/tooltrack-backend/internal/model"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// UserSessionKey returns the cache key marking a token ID as live for a user
func (r *CacheKeyStruct) UserSessionKey(userID int, jti string) string {
	return fmt.Sprintf("user:%d:session:%s", userID, jti)
}

// UserSessionPattern matches every live session of a user
func (r *CacheKeyStruct) UserSessionPattern(userID int) string {
	return fmt.Sprintf("user:%d:session:*", userID)
}

// PermissionGenerationKey holds the counter bumped on every permission update
func (r *CacheKeyStruct) PermissionGenerationKey() string {
	return "permissions:generation"
}

// RolePermissionsKey returns the cache key for a role's permission set as of
// generation gen
func (r *CacheKeyStruct) RolePermissionsKey(gen int64, role model.Role) string {
	return fmt.Sprintf("permissions:g%d:role:%s", gen, role)
}

// RolePermissionsPattern matches every cached permission set of any generation
func (r *CacheKeyStruct) RolePermissionsPattern() string {
	return "permissions:g*:role:*"
}

// IssueSequenceKey returns the counter key for issue numbers of a given day
func (r *CacheKeyStruct) IssueSequenceKey(day string) string {
	return fmt.Sprintf("issue:seq:%s", day)
}

// OverdueNoticeKey marks an issue whose overdue notice was already published
func (r *CacheKeyStruct) OverdueNoticeKey(issueID int) string {
	return fmt.Sprintf("issue:%d:overdue_notice", issueID)
}

// MovementChannel returns the Redis PubSub channel for tool movements
func (r *CacheKeyStruct) MovementChannel() string {
	return "dashboard:movements"
}

var CacheKey = NewCacheKeyStruct()
