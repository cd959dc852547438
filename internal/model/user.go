package model

type UserRole string

const (
	Student UserRole = "student"
	Teacher UserRole = "teacher"
	Admin   UserRole = "admin"
)

func (r UserRole) Valid() bool {
	switch r {
	case Student, Teacher, Admin:
		return true
	}
	return false
}

// Principal 已由上游认证解析出的调用者身份
type Principal struct {
	UserID string   `json:"userId"`
	Role   UserRole `json:"role"`
}

func (p Principal) IsAdmin() bool {
	return p.Role == Admin
}
