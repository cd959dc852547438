package policy

import "learnhub_backend/internal/model"

// AccessPolicy 决定调用者能否读写测验或作答记录
type AccessPolicy interface {
	CanAuthor(p model.Principal) bool
	CanWrite(p model.Principal, ownerID string) bool
	CanAccessAttempt(p model.Principal, attempt *model.Attempt) bool
}

// OwnerPolicy 测验归属教师可写，管理员不受归属限制；作答记录只属于学生本人
type OwnerPolicy struct{}

func NewOwnerPolicy() *OwnerPolicy {
	return &OwnerPolicy{}
}

func (OwnerPolicy) CanAuthor(p model.Principal) bool {
	return p.Role == model.Teacher || p.Role == model.Admin
}

func (OwnerPolicy) CanWrite(p model.Principal, ownerID string) bool {
	if p.IsAdmin() {
		return true
	}
	return p.UserID != "" && p.UserID == ownerID
}

// CanAccessAttempt 管理员也不能通过学生接口查看他人作答
func (OwnerPolicy) CanAccessAttempt(p model.Principal, attempt *model.Attempt) bool {
	return attempt != nil && p.UserID != "" && attempt.StudentID == p.UserID
}
