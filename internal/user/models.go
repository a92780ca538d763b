package user

const (
	RoleStudent = "student"
	RoleFaculty = "faculty"
	RoleAdmin   = "admin"
)

func ValidRole(role string) bool {
	return role == RoleStudent || role == RoleFaculty || role == RoleAdmin
}

type User struct {
	ID                    int64  `json:"id"`
	Email                 string `json:"email"`
	Name                  string `json:"name"`
	Role                  string `json:"role"`
	RequirePasswordChange bool   `json:"require_password_change,omitempty"`
	CreatedAt             int64  `json:"created_at,omitempty"`

	PasswordHash string `json:"-"`
}

type Profile struct {
	Bio   string `json:"bio"`
	Phone string `json:"phone"`
}

// PasswordReset is the stored half of a single-use credential-reset token.
type PasswordReset struct {
	ID        int64
	UserID    int64
	TokenHash string
	ExpiresAt int64
	Used      bool
}
